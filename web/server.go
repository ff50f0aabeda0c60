// Package web serves the run-history API: past sync runs, their counters
// and the individual host changes each run applied.
package web

import (
	"net/http"

	"f0oster/zbxsync/database"
	"f0oster/zbxsync/logging"
)

// Server handles HTTP requests for the run-history report.
type Server struct {
	history *database.Recorder
	mux     *http.ServeMux
	addr    string
}

func NewServer(history *database.Recorder, addr string) *Server {
	s := &Server{
		history: history,
		mux:     http.NewServeMux(),
		addr:    addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("GET /api/runs/{id}/changes", s.handleListRunChanges)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	logging.Default().Info().Str("addr", s.addr).Msg("starting report server")
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler returns the HTTP handler for use with custom servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}
