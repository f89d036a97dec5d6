package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hostweave/go-rewriter/internal/metrics"
	"github.com/hostweave/go-rewriter/internal/rewrite"
)

// ServeHTTP runs one request through the pipeline: scope resolution, rule
// evaluation, then either the redirect response or the scope's handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := s.pipeline.Load()

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	logger := log.With().
		Str("request_id", requestID).
		Str("host", r.Host).
		Str("path", r.URL.Path).
		Logger()

	scope := p.resolver.Resolve(r.Host, r.URL.Path)
	if scope == nil {
		metrics.UnmatchedTotal.Inc()
		logger.Debug().Msg("no matching vhost scope")
		http.NotFound(w, r)
		return
	}

	metrics.RequestsTotal.WithLabelValues(scope.Host).Inc()

	path := scope.RewritePath(r.URL.Path)
	subject := &rewrite.Request{
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
	}

	decision, err := p.engine.Apply(scope.Rules, subject)
	if err != nil {
		var loopErr *rewrite.LoopError
		if errors.As(err, &loopErr) {
			metrics.LoopFaultsTotal.Inc()
			logger.Error().
				Str("scope", scope.Host).
				Int("rule", loopErr.RuleIndex).
				Str("subject", loopErr.Subject).
				Int("iterations", loopErr.Iterations).
				Msg("rewrite loop cap exceeded")
		} else {
			logger.Error().Err(err).Str("scope", scope.Host).Msg("rewrite evaluation failed")
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if decision.Redirect {
		metrics.RedirectsTotal.Inc()
		logger.Info().
			Int("status", decision.Status).
			Str("location", decision.Target).
			Msg("redirect issued")
		// The target goes out verbatim; bare paths are completed by the
		// client against the request's scheme and authority.
		w.Header().Set("Location", decision.Target)
		w.WriteHeader(decision.Status)
		return
	}

	original := path
	if r.URL.RawQuery != "" {
		original += "?" + r.URL.RawQuery
	}
	if decision.Target != original {
		metrics.RewritesTotal.Inc()
		logger.Debug().
			Str("rewritten", decision.Target).
			Msg("path rewritten")
	}

	newPath, newQuery, _ := strings.Cut(decision.Target, "?")
	r.URL.Path = newPath
	r.URL.RawPath = ""
	r.URL.RawQuery = newQuery

	if scope.Handler != nil && scope.Handler.Handle(w, r) {
		return
	}

	http.NotFound(w, r)
}
