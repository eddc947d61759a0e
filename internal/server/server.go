// Package server provides the HTTP server: the JSON API, the recognition
// event stream and the optional static web UI.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Recognizer *gesture.Recognizer
	// Plugins, when set, is listed at /api/plugins and checks new bindings.
	Plugins *plugin.Manager
	Events  *EventHub
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
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

	if r := s.config.Recognizer; r != nil {
		examples := api.NewExampleHandler(r)
		s.mux.Handle("/api/examples", examples)
		s.mux.Handle("/api/examples/", examples)
		s.mux.Handle("/api/recognize", api.NewRecognizeHandler(r))
		s.mux.Handle("/api/retrain", api.NewRetrainHandler(r))

		if s.config.Store != nil {
			actions := api.NewActionHandler(s.config.Store, r, s.config.Plugins)
			s.mux.Handle("/api/actions", actions)
			s.mux.Handle("/api/actions/", actions)
		}
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	// Serve static files if StaticDir is configured
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
	if rec := s.config.Recognizer; rec != nil {
		response["trained"] = rec.Trained()
		response["examples"] = len(rec.Examples())
		response["labels"] = len(rec.Labels())
	}
	if st := s.config.Store; st != nil {
		if n, err := st.Examples().Count(); err == nil {
			response["examples_stored"] = n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
