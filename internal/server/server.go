package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/hostweave/go-rewriter/internal/config"
	"github.com/hostweave/go-rewriter/internal/metrics"
	"github.com/hostweave/go-rewriter/internal/rewrite"
	"github.com/hostweave/go-rewriter/internal/static"
	"github.com/hostweave/go-rewriter/internal/upstream"
	"github.com/hostweave/go-rewriter/internal/vhost"
)

// pipeline is the compiled, immutable per-configuration state. A reload
// builds a whole new pipeline and swaps it in atomically, so a request
// evaluation never sees a mix of old and new rules.
type pipeline struct {
	resolver *vhost.Resolver
	engine   *rewrite.Engine
}

// Server hosts the request pipeline on the configured listen addresses
type Server struct {
	pipeline atomic.Pointer[pipeline]
	cfg      *config.Config
	servers  []*http.Server
	mu       sync.Mutex
}

// New creates a new server instance with a compiled pipeline
func New(cfg *config.Config) (*Server, error) {
	p, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}
	s.pipeline.Store(p)
	return s, nil
}

// buildPipeline compiles the vhost and rewrite configuration
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	resolver, err := vhost.NewResolver(cfg.VHosts, buildHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to build vhost resolver: %w", err)
	}

	return &pipeline{
		resolver: resolver,
		engine:   &rewrite.Engine{MaxIterations: cfg.Server.RewriteLimit},
	}, nil
}

// buildHandler creates the pipeline handler of a route, if it has one
func buildHandler(route *config.Route) (vhost.Handler, error) {
	switch {
	case route.Static != nil:
		return static.New(route.Static), nil
	case route.Upstream != nil:
		return upstream.New(route.Upstream)
	default:
		return nil, nil
	}
}

// Start starts all configured listeners
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range s.cfg.Server.Listen {
		srv := &http.Server{
			Addr:         addr,
			Handler:      s,
			ReadTimeout:  s.cfg.Server.ReadTimeout,
			WriteTimeout: s.cfg.Server.WriteTimeout,
			IdleTimeout:  s.cfg.Server.IdleTimeout,
		}

		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}

		s.servers = append(s.servers, srv)

		go func(srv *http.Server, addr string) {
			log.Info().Str("addr", addr).Msg("server started")
			if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Str("addr", addr).Msg("server error")
			}
		}(srv, addr)
	}

	if s.cfg.Metrics.Enabled {
		if err := s.startMetrics(); err != nil {
			return err
		}
	}

	return nil
}

// startMetrics exposes the Prometheus endpoint on its own address
func (s *Server) startMetrics() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    s.cfg.Metrics.Addr,
		Handler: mux,
	}

	listener, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics addr %s: %w", s.cfg.Metrics.Addr, err)
	}

	s.servers = append(s.servers, srv)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("metrics endpoint started")
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	return nil
}

// Stop gracefully stops all listeners
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Msg("stopping servers")

	var wg sync.WaitGroup
	errCh := make(chan error, len(s.servers))

	for _, srv := range s.servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				errCh <- err
			}
		}(srv)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	log.Info().Msg("servers stopped")
	return nil
}

// Reload compiles the new configuration and swaps the pipeline atomically.
// On a compilation error the running pipeline stays in effect. Listen
// addresses cannot change across a reload.
func (s *Server) Reload(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	if !equalListen(s.cfg.Server.Listen, cfg.Server.Listen) {
		log.Warn().Msg("listen addresses changed, restart required for them to take effect")
	}

	s.pipeline.Store(p)

	log.Info().Int("vhosts", len(cfg.VHosts)).Msg("pipeline reloaded")
	return nil
}

func equalListen(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
