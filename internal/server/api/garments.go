package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/mesh"
	"github.com/ayusman/drape/internal/store"
)

// SourceAPI marks garments created through the HTTP API.
const SourceAPI = "api"

// GarmentHandler handles HTTP requests for the garment catalog.
type GarmentHandler struct {
	store *store.Store
}

// NewGarmentHandler creates a new GarmentHandler with the given store.
func NewGarmentHandler(s *store.Store) *GarmentHandler {
	return &GarmentHandler{store: s}
}

// ServeHTTP routes /api/garments, /api/garments/{id} and
// /api/garments/{id}/mesh.
func (h *GarmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/garments")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
	case "mesh":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.mesh(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listGarmentsResponse struct {
	Garments []*store.Garment `json:"garments"`
}

// meshResponse is the static topology a renderer uploads once per garment.
type meshResponse struct {
	GarmentID     string     `json:"garmentId"`
	Mesh          *mesh.Mesh `json:"mesh"`
	TorsoIndices  []uint32   `json:"torsoIndices"`
	SleeveIndices []uint32   `json:"sleeveIndices"`
}

// list handles GET /api/garments.
func (h *GarmentHandler) list(w http.ResponseWriter, r *http.Request) {
	garments, err := h.store.Garments().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list garments")
		return
	}
	if garments == nil {
		garments = []*store.Garment{}
	}
	writeJSON(w, http.StatusOK, listGarmentsResponse{Garments: garments})
}

// create handles POST /api/garments. The body is garment metadata JSON; an
// existing garment with the same id is replaced.
func (h *GarmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var meta garment.Metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	g, err := h.store.Garments().Upsert(&meta, SourceAPI)
	if err != nil {
		if errors.Is(err, garment.ErrInvalidMetadata) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save garment")
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// get handles GET /api/garments/{id}.
func (h *GarmentHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// mesh handles GET /api/garments/{id}/mesh.
func (h *GarmentHandler) mesh(w http.ResponseWriter, r *http.Request, id string) {
	g, ok := h.lookup(w, id)
	if !ok {
		return
	}
	m := mesh.Generate(g.Metadata)
	writeJSON(w, http.StatusOK, meshResponse{
		GarmentID:     g.ID,
		Mesh:          m,
		TorsoIndices:  mesh.Indices(m.TorsoGrid),
		SleeveIndices: mesh.Indices(m.SleeveGrid),
	})
}

// delete handles DELETE /api/garments/{id}.
func (h *GarmentHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Garments().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Garment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete garment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GarmentHandler) lookup(w http.ResponseWriter, id string) (*store.Garment, bool) {
	g, err := h.store.Garments().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Garment not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get garment")
		return nil, false
	}
	return g, true
}
