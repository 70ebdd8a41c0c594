// Package server provides the HTTP server for the drape try-on preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/deform"
	"github.com/ayusman/drape/internal/geom"
	"github.com/ayusman/drape/internal/logging"
	"github.com/ayusman/drape/internal/server/api"
	"github.com/ayusman/drape/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// Viewport is used by /api/deform when no App is configured.
	Viewport geom.Viewport
}

// Server represents the HTTP server for the drape application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	mesh   *MeshHandler
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		garments := api.NewGarmentHandler(s.config.Store)
		s.mux.Handle("/api/garments", garments)
		s.mux.Handle("/api/garments/", garments)

		deformer := deform.Default()
		viewport := s.config.Viewport
		if s.config.App != nil {
			deformer = s.config.App.Deformer()
			viewport = s.config.App.Viewport()
		}
		s.mux.Handle("/api/deform", api.NewDeformHandler(s.config.Store, deformer, viewport))

		var recorder api.Recorder
		if s.config.App != nil {
			recorder = s.config.App.Recorder()
		}
		recordings := api.NewRecordingHandler(s.config.Store, recorder)

		// /api/recordings/{id}/replay needs the session, the rest is store-only
		recordingRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.config.App != nil && strings.HasSuffix(r.URL.Path, "/replay") {
				s.handleReplay(w, r)
				return
			}
			recordings.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/recordings", recordingRouter)
		s.mux.Handle("/api/recordings/", recordingRouter)
	}

	if s.config.App != nil {
		session := api.NewSessionHandler(s.config.App)
		s.mux.Handle("/api/session", session)
		s.mux.Handle("/api/session/", session)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))

		s.mesh = NewMeshHandler(s.config.App)
		s.mux.Handle("/api/mesh", s.mesh)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["tracking"] = s.config.App.IsEnabled()
		response["seq"] = s.config.App.Latest().Seq
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s}
	logging.For("server").Info("listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the broadcast loop and gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mesh != nil {
		s.mesh.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
