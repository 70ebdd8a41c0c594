package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/store"
)

type replayResponse struct {
	RecordingID string            `json:"recordingId"`
	Frames      []app.ReplayFrame `json:"frames"`
}

// handleReplay serves /api/recordings/{id}/replay. GET deforms every frame
// against ?garment= (or the active garment) and returns the results. POST
// plays the recording into the live session in real time.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	id = strings.TrimSuffix(id, "/replay")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	opts := app.ReplayOptions{GarmentID: r.URL.Query().Get("garment")}

	switch r.Method {
	case http.MethodGet:
		resp := replayResponse{RecordingID: id, Frames: []app.ReplayFrame{}}
		err := s.config.App.Replay(r.Context(), id, opts, func(f app.ReplayFrame) error {
			resp.Frames = append(resp.Frames, f)
			return nil
		})
		if err != nil {
			writeReplayError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		// validate synchronously so the caller sees a missing recording
		if _, err := s.config.Store.Recordings().GetByID(id); err != nil {
			writeReplayError(w, err)
			return
		}
		opts.Realtime = true
		opts.Publish = true
		go func() {
			err := s.config.App.Replay(context.Background(), id, opts, func(app.ReplayFrame) error { return nil })
			if err != nil {
				logging.For("server").Warn("replay failed", "recording", id, "err", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"recordingId": id})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeReplayError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrNoGarment):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
