package api

import (
	"math"
	"net/http"
	"testing"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/geom"
)

func standingLandmarks() *body.Skeleton {
	var lm body.Skeleton
	lm[body.LeftShoulder] = geom.V(400, 300)
	lm[body.RightShoulder] = geom.V(600, 300)
	lm[body.LeftElbow] = geom.V(360, 450)
	lm[body.RightElbow] = geom.V(640, 450)
	lm[body.LeftWrist] = geom.V(350, 600)
	lm[body.RightWrist] = geom.V(650, 600)
	lm[body.LeftHip] = geom.V(420, 600)
	lm[body.RightHip] = geom.V(580, 600)
	return &lm
}

func newDeformHandler(t *testing.T) *DeformHandler {
	t.Helper()
	s := newTestStore(t)
	seedGarments(t, s)
	d, err := deform.New(deform.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create deformer: %v", err)
	}
	return NewDeformHandler(s, d, geom.Viewport{Width: 1000, Height: 1000})
}

func TestDeformHandler(t *testing.T) {
	handler := newDeformHandler(t)

	t.Run("deforms landmarks", func(t *testing.T) {
		rec := do(t, handler, http.MethodPost, "/api/deform", deformRequest{
			GarmentID: "basic-tshirt",
			Landmarks: standingLandmarks(),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		var response deformResponse
		decode(t, rec, &response)
		if !response.Valid {
			t.Fatal("expected a valid mesh")
		}
		if response.Mesh.GarmentID != "basic-tshirt" {
			t.Errorf("expected garment basic-tshirt, got %s", response.Mesh.GarmentID)
		}
		if got := len(response.Mesh.Torso); got != 80 {
			t.Errorf("expected 80 torso vertices, got %d", got)
		}
		for i, v := range response.Mesh.Torso {
			if math.Abs(v.X) > 1 || math.Abs(v.Y) > 1 {
				t.Fatalf("torso vertex %d outside NDC: %+v", i, v)
			}
		}
	})

	t.Run("degenerate landmarks give empty mesh", func(t *testing.T) {
		lm := standingLandmarks()
		lm[body.RightShoulder] = lm[body.LeftShoulder]

		rec := do(t, handler, http.MethodPost, "/api/deform", deformRequest{GarmentID: "basic-tshirt", Landmarks: lm})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response deformResponse
		decode(t, rec, &response)
		if response.Valid || len(response.Mesh.Torso) != 0 {
			t.Errorf("expected empty mesh, got %d torso vertices", len(response.Mesh.Torso))
		}
	})

	t.Run("missing arm joint keeps torso", func(t *testing.T) {
		body := `{"garmentId":"basic-tshirt","viewport":{"width":1000,"height":1000},"landmarks":{
			"leftShoulder":[400,300],"rightShoulder":[600,300],
			"leftElbow":null,"rightElbow":[640,450],
			"leftWrist":null,"rightWrist":[650,600],
			"leftHip":[420,600],"rightHip":[580,600]}}`
		rec := do(t, handler, http.MethodPost, "/api/deform", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var response deformResponse
		decode(t, rec, &response)
		if !response.Valid || len(response.Mesh.LeftSleeve) != 24 {
			t.Errorf("expected 24 left sleeve vertices, got %d", len(response.Mesh.LeftSleeve))
		}
	})

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "invalid JSON", body: "{", want: http.StatusBadRequest},
		{name: "missing garment id", body: deformRequest{Landmarks: standingLandmarks()}, want: http.StatusBadRequest},
		{name: "missing landmarks", body: `{"garmentId":"basic-tshirt"}`, want: http.StatusBadRequest},
		{name: "incomplete landmarks", body: `{"garmentId":"basic-tshirt","landmarks":{"leftShoulder":[1,2]}}`, want: http.StatusBadRequest},
		{name: "bad viewport", body: deformRequest{GarmentID: "basic-tshirt", Landmarks: standingLandmarks(), Viewport: &geom.Viewport{}}, want: http.StatusBadRequest},
		{name: "unknown garment", body: deformRequest{GarmentID: "cape", Landmarks: standingLandmarks()}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/deform", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	t.Run("only allows POST", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/deform", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
