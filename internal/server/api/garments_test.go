package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/drape/internal/store"
	"github.com/ayusman/drape/testdata"
)

func TestGarmentHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewGarmentHandler(s)

	t.Run("empty catalog", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/garments", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response listGarmentsResponse
		decode(t, rec, &response)
		if response.Garments == nil || len(response.Garments) != 0 {
			t.Errorf("expected empty garment list, got %v", response.Garments)
		}
	})

	t.Run("seeded catalog", func(t *testing.T) {
		seedGarments(t, s)

		rec := do(t, handler, http.MethodGet, "/api/garments", nil)
		var response listGarmentsResponse
		decode(t, rec, &response)

		if len(response.Garments) != 2 {
			t.Fatalf("expected 2 garments, got %d", len(response.Garments))
		}
		if response.Garments[0].ID != "basic-tshirt" {
			t.Errorf("expected first garment basic-tshirt, got %s", response.Garments[0].ID)
		}
		if response.Garments[1].Metadata == nil {
			t.Error("expected metadata in list response")
		}
	})
}

func TestGarmentHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewGarmentHandler(s)

	t.Run("valid metadata", func(t *testing.T) {
		body, err := testdata.GarmentJSON("denim_jacket")
		if err != nil {
			t.Fatal(err)
		}
		rec := do(t, handler, http.MethodPost, "/api/garments", string(body))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}

		var g store.Garment
		decode(t, rec, &g)
		if g.ID != "denim-jacket" {
			t.Errorf("expected id denim-jacket, got %s", g.ID)
		}
		if g.Source != SourceAPI {
			t.Errorf("expected source %q, got %q", SourceAPI, g.Source)
		}
	})

	t.Run("invalid metadata", func(t *testing.T) {
		meta := testdata.MustGarment("basic_tshirt")
		meta.Type = "trousers"

		rec := do(t, handler, http.MethodPost, "/api/garments", meta)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := do(t, handler, http.MethodPost, "/api/garments", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestGarmentHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seedGarments(t, s)
	handler := NewGarmentHandler(s)

	rec := do(t, handler, http.MethodGet, "/api/garments/basic-tshirt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var g store.Garment
	decode(t, rec, &g)
	if g.Metadata == nil || g.Metadata.Type != "tshirt" {
		t.Errorf("expected tshirt metadata, got %+v", g.Metadata)
	}

	rec = do(t, handler, http.MethodGet, "/api/garments/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGarmentHandler_Mesh(t *testing.T) {
	s := newTestStore(t)
	seedGarments(t, s)
	handler := NewGarmentHandler(s)

	rec := do(t, handler, http.MethodGet, "/api/garments/basic-tshirt/mesh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response meshResponse
	decode(t, rec, &response)

	// 8x10 torso grid and 4x6 sleeve grid
	if got := len(response.Mesh.Torso); got != 80 {
		t.Errorf("expected 80 torso vertices, got %d", got)
	}
	if got := len(response.Mesh.LeftSleeve); got != 24 {
		t.Errorf("expected 24 left sleeve vertices, got %d", got)
	}
	if got := len(response.TorsoIndices); got != 7*9*6 {
		t.Errorf("expected %d torso indices, got %d", 7*9*6, got)
	}
	if got := len(response.SleeveIndices); got != 3*5*6 {
		t.Errorf("expected %d sleeve indices, got %d", 3*5*6, got)
	}

	rec = do(t, handler, http.MethodPost, "/api/garments/basic-tshirt/mesh", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/garments/missing/mesh", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGarmentHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seedGarments(t, s)
	handler := NewGarmentHandler(s)

	rec := do(t, handler, http.MethodDelete, "/api/garments/denim-jacket", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = do(t, handler, http.MethodDelete, "/api/garments/denim-jacket", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGarmentHandler_Routing(t *testing.T) {
	handler := NewGarmentHandler(newTestStore(t))

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodPut, "/api/garments", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/garments/basic-tshirt", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/garments/basic-tshirt/texture", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := do(t, handler, tt.method, tt.target, nil)
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.target, tt.want, rec.Code)
		}
	}
}
