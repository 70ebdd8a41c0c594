package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/drape/internal/garment"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/store"
)

// Session is the live try-on session controlled through /api/session.
type Session interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	ActiveGarment() *garment.Metadata
	SelectGarment(id string) error
	NextGarment() (string, error)
	Viewport() geom.Viewport
}

// SessionHandler exposes tracking state and garment selection.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a SessionHandler for s.
func NewSessionHandler(s Session) *SessionHandler {
	return &SessionHandler{session: s}
}

type sessionResponse struct {
	Enabled   bool          `json:"enabled"`
	GarmentID string        `json:"garmentId"`
	Viewport  geom.Viewport `json:"viewport"`
}

type updateSessionRequest struct {
	Enabled   *bool   `json:"enabled"`
	GarmentID *string `json:"garmentId"`
}

// ServeHTTP routes /api/session and /api/session/next.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.state())
	case path == "" && r.Method == http.MethodPut:
		h.update(w, r)
	case path == "next" && r.Method == http.MethodPost:
		h.next(w, r)
	case path == "" || path == "next":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) state() sessionResponse {
	resp := sessionResponse{
		Enabled:  h.session.IsEnabled(),
		Viewport: h.session.Viewport(),
	}
	if g := h.session.ActiveGarment(); g != nil {
		resp.GarmentID = g.ID
	}
	return resp
}

// update handles PUT /api/session. Omitted fields are left unchanged.
func (h *SessionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.GarmentID != nil {
		if err := h.session.SelectGarment(*req.GarmentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Garment not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to select garment")
			return
		}
	}
	if req.Enabled != nil {
		h.session.SetEnabled(*req.Enabled)
	}

	writeJSON(w, http.StatusOK, h.state())
}

// next handles POST /api/session/next.
func (h *SessionHandler) next(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.NextGarment(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}
