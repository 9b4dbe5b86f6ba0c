// Package server composes the Largo listeners.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/stats"
	"github.com/largo-sh/largo/pkg/web"
)

// Server is the Largo server. It serves the LFS batch API and, depending on
// the transfer adapter, the object storage endpoints, plus a separate stats
// listener.
type Server struct {
	HTTPServer  *web.HTTPServer
	StatsServer *stats.Server

	cfg    *config.Config
	logger *log.Logger
}

// NewServer returns a new *Server. The context must carry the config,
// logger, storage backend and transfer adapter.
func NewServer(ctx context.Context) (*Server, error) {
	cfg := config.FromContext(ctx)
	srv := &Server{
		cfg:    cfg,
		logger: log.FromContext(ctx).WithPrefix("server"),
	}

	var err error
	srv.HTTPServer, err = web.NewHTTPServer(ctx)
	if err != nil {
		return nil, err
	}

	srv.StatsServer, err = stats.NewServer(ctx)
	if err != nil {
		return nil, err
	}

	return srv, nil
}

// Start starts all listeners and blocks until the first of them fails or
// everything has shut down.
func (s *Server) Start() error {
	var g errgroup.Group
	g.Go(func() error {
		s.logger.Info("starting HTTP server", "addr", s.cfg.HTTP.ListenAddr)
		if err := s.HTTPServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.logger.Info("starting stats server", "addr", s.cfg.Stats.ListenAddr)
		if err := s.StatsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// Shutdown gracefully shuts down all listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.HTTPServer.Shutdown(ctx)
	})
	g.Go(func() error {
		return s.StatsServer.Shutdown(ctx)
	})
	return g.Wait()
}

// Close closes all listeners.
func (s *Server) Close() error {
	var g errgroup.Group
	g.Go(s.HTTPServer.Close)
	g.Go(s.StatsServer.Close)
	return g.Wait()
}
