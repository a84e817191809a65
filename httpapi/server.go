// Package httpapi exposes the flow store, replay driver, and recorder over
// an HTTP control surface. Each endpoint maps onto one core operation and
// translates classified core failures into non-2xx responses with a
// machine-readable error body.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/deepnoodle-ai/browserflow"
)

// Options configures a new server
type Options struct {
	Store    browserflow.FlowStore
	Driver   *browserflow.ReplayDriver
	Recorder *browserflow.Recorder
	Logger   *slog.Logger
	Addr     string
}

// Server is the HTTP control surface
type Server struct {
	store    browserflow.FlowStore
	driver   *browserflow.ReplayDriver
	recorder *browserflow.Recorder
	logger   *slog.Logger
	mux      *http.ServeMux
	server   *http.Server
	addr     string
}

// NewServer creates a new control surface server
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("flow store is required")
	}
	if opts.Driver == nil {
		return nil, fmt.Errorf("replay driver is required")
	}
	if opts.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Addr == "" {
		opts.Addr = ":5001"
	}

	s := &Server{
		store:    opts.Store,
		driver:   opts.Driver,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		mux:      http.NewServeMux(),
		addr:     opts.Addr,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/flows", s.handleListFlows)
	s.mux.HandleFunc("DELETE /api/flows/{name}", s.handleDeleteFlow)
	s.mux.HandleFunc("POST /api/replay-flow", s.handleReplayFlow)
	s.mux.HandleFunc("POST /api/start-recording", s.handleStartRecording)
	s.mux.HandleFunc("POST /api/stop-recording", s.handleStopRecording)
	s.mux.HandleFunc("GET /api/recording-status", s.handleRecordingStatus)
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts serving on the configured address and blocks until
// the server is shut down.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}
	s.logger.Info("control surface listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
