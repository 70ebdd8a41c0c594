package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/drape/internal/store"
)

// Recorder captures the live session's estimator output.
type Recorder interface {
	Start(name string) error
	Stop() (*store.Recording, error)
	Active() bool
}

// RecordingHandler handles HTTP requests for pose recordings.
type RecordingHandler struct {
	store    *store.Store
	recorder Recorder
}

// NewRecordingHandler creates a RecordingHandler. recorder may be nil, in
// which case only stored recordings are served.
func NewRecordingHandler(s *store.Store, recorder Recorder) *RecordingHandler {
	return &RecordingHandler{store: s, recorder: recorder}
}

// ServeHTTP routes /api/recordings, /api/recordings/start,
// /api/recordings/stop and /api/recordings/{id}.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	case "start", "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.recorder == nil {
			writeError(w, http.StatusServiceUnavailable, "Recording not available")
			return
		}
		if path == "start" {
			h.start(w, r)
		} else {
			h.stop(w, r)
		}
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

type recordingResponse struct {
	*store.Recording
	FrameData []store.Frame `json:"frameData"`
}

type createRecordingRequest struct {
	Name        string        `json:"name"`
	ImageWidth  float64       `json:"imageWidth"`
	ImageHeight float64       `json:"imageHeight"`
	Mirrored    bool          `json:"mirrored"`
	Frames      []store.Frame `json:"frames"`
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

type statusResponse struct {
	Recording bool `json:"recording"`
}

// list handles GET /api/recordings.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recs == nil {
		recs = []*store.Recording{}
	}
	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recs})
}

// create handles POST /api/recordings and imports a complete recording.
func (h *RecordingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !(req.ImageWidth > 0) || !(req.ImageHeight > 0) {
		writeError(w, http.StatusBadRequest, "imageWidth and imageHeight are required")
		return
	}
	if len(req.Frames) == 0 {
		writeError(w, http.StatusBadRequest, "At least one frame is required")
		return
	}

	rec := &store.Recording{
		ID:          uuid.New().String(),
		Name:        req.Name,
		ImageWidth:  req.ImageWidth,
		ImageHeight: req.ImageHeight,
		Mirrored:    req.Mirrored,
	}
	if rec.Name == "" {
		rec.Name = rec.ID
	}
	if err := h.store.Recordings().Create(rec, req.Frames); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save recording")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// start handles POST /api/recordings/start.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	if err := h.recorder.Start(req.Name); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Recording: true})
}

// stop handles POST /api/recordings/stop and returns the saved recording.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	if !h.recorder.Active() {
		writeError(w, http.StatusConflict, "Not recording")
		return
	}
	rec, err := h.recorder.Stop()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// get handles GET /api/recordings/{id} and includes every frame.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}
	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get recording frames")
		return
	}
	if frames == nil {
		frames = []store.Frame{}
	}
	writeJSON(w, http.StatusOK, recordingResponse{Recording: rec, FrameData: frames})
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
