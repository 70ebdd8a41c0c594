package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/drape/internal/body"
	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/mesh"
	"github.com/ayusman/drape/internal/store"
)

// DeformHandler deforms caller-supplied landmarks onto a catalog garment.
// It is stateless and does not touch the live session.
type DeformHandler struct {
	store    *store.Store
	deformer *deform.Deformer
	viewport geom.Viewport
}

// NewDeformHandler creates a DeformHandler. viewport is used when a request
// does not name one.
func NewDeformHandler(s *store.Store, d *deform.Deformer, viewport geom.Viewport) *DeformHandler {
	return &DeformHandler{store: s, deformer: d, viewport: viewport}
}

type deformRequest struct {
	GarmentID string         `json:"garmentId"`
	Landmarks *body.Skeleton `json:"landmarks"`
	Viewport  *geom.Viewport `json:"viewport,omitempty"`
}

type deformResponse struct {
	// Valid is false when the landmarks could not be deformed against and
	// the mesh is empty.
	Valid bool        `json:"valid"`
	Mesh  deform.Mesh `json:"mesh"`
}

// ServeHTTP handles POST /api/deform.
func (h *DeformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.GarmentID == "" {
		writeError(w, http.StatusBadRequest, "garmentId is required")
		return
	}
	if req.Landmarks == nil {
		writeError(w, http.StatusBadRequest, "landmarks are required")
		return
	}

	vp := h.viewport
	if req.Viewport != nil {
		vp = *req.Viewport
	}
	if !vp.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid viewport")
		return
	}

	g, err := h.store.Garments().GetByID(req.GarmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Garment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get garment")
		return
	}

	out := h.deformer.Deform(mesh.Generate(g.Metadata), req.Landmarks, g.Metadata, vp.Width, vp.Height)
	writeJSON(w, http.StatusOK, deformResponse{Valid: !out.Empty(), Mesh: out})
}
