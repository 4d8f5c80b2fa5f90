// Package pprof serves runtime profiles on localhost while elia runs.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
)

// Server exposes the net/http/pprof handlers on 127.0.0.1.
type Server struct {
	server *http.Server
	port   int
	logger *slog.Logger
}

// NewServer returns a stopped server. A nil logger discards errors.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{logger: logger}
}

// Start listens on the given port, or a free one when port is 0, and
// returns the port in use.
func (s *Server) Start(port int) (int, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("bind to %s: %w", addr, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	// A private mux keeps anything on http.DefaultServeMux off the port.
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("pprof server stopped", "error", err)
		}
	}()
	s.logger.Info("pprof server started", "port", s.port)
	return s.port, nil
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	return s.port
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// PrintUsage writes the go tool commands for the running server.
func PrintUsage(w io.Writer, port int) {
	base := fmt.Sprintf("http://127.0.0.1:%d/debug/pprof", port)
	fmt.Fprintf(w, "pprof: %s/\n", base)
	fmt.Fprintf(w, "  go tool pprof %s/profile?seconds=30\n", base)
	fmt.Fprintf(w, "  go tool pprof %s/heap\n", base)
	fmt.Fprintf(w, "  curl %s/goroutine?debug=2\n", base)
}
