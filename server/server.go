// Package server exposes the co toolchain over the network: a Connect
// service for compiling, checking and running programs, and a language
// server for editors.
package server

import (
	"net/http"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("co.server")

// Server serves the toolchain service. Connect handlers accept the
// Connect, gRPC and gRPC-Web protocols on the same port.
type Server struct {
	worker  *Worker
	history *RunStore
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*config)

type config struct {
	maxSteps    int
	historyPath string
}

// WithMaxSteps caps the number of instructions a single run may execute.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// WithHistory records every run in the SQLite database at path.
func WithHistory(path string) Option {
	return func(c *config) { c.historyPath = path }
}

// New creates a Server.
func New(opts ...Option) (*Server, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		worker: NewWorker(),
		mux:    http.NewServeMux(),
	}
	if cfg.historyPath != "" {
		h, err := OpenRunStore(cfg.historyPath)
		if err != nil {
			s.worker.Stop()
			return nil, err
		}
		s.history = h
	}

	svc := NewToolchainService(s.worker, s.history, cfg.maxSteps)
	path, handler := NewToolchainServiceHandler(svc)
	s.mux.Handle(path, handler)

	return s, nil
}

// Handler returns the HTTP handler serving all procedures.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("co toolchain server listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, RunProcedure)

	// gRPC clients need HTTP/2, which without TLS means h2c.
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)
	srv := &http.Server{Addr: addr, Handler: s.mux, Protocols: protocols}
	return srv.ListenAndServe()
}

// Stop shuts down the worker and closes the run history.
func (s *Server) Stop() {
	s.worker.Stop()
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Errorf("closing run history: %v", err)
		}
	}
}
