// Package stats provides the Prometheus metrics listener.
package stats

import (
	"context"
	"net/http"
	"time"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is a server for collecting and reporting statistics.
type Server struct {
	ctx    context.Context
	cfg    *config.Config
	server *http.Server
}

// NewServer returns a new stats Server.
func NewServer(ctx context.Context) (*Server, error) {
	cfg := config.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		ctx: ctx,
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.Stats.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: time.Second * 10,
			ReadTimeout:       time.Second * 10,
			WriteTimeout:      time.Second * 10,
			MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
		},
	}, nil
}

// ListenAndServe starts the stats server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the stats server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close closes the stats server.
func (s *Server) Close() error {
	return s.server.Close()
}
