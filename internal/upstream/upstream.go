package upstream

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/hostweave/go-rewriter/internal/config"
)

// Handler forwards requests to a backend server. WebSocket upgrades are
// passed through as bidirectional message copies.
type Handler struct {
	addr   string
	scheme string
	host   string
	client *http.Client
}

// New creates an upstream handler for the given configuration.
func New(cfg *config.UpstreamConfig) (*Handler, error) {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	return &Handler{
		addr:   cfg.Addr,
		scheme: scheme,
		host:   cfg.Host,
		client: client,
	}, nil
}

// Handle forwards the request. It always produces a response.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) bool {
	if isWebSocketUpgrade(r) {
		h.handleWebSocket(w, r)
		return true
	}

	if err := h.forward(w, r); err != nil {
		log.Error().
			Err(err).
			Str("host", r.Host).
			Str("path", r.URL.Path).
			Str("upstream", h.addr).
			Msg("failed to forward request")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}
	return true
}

// forward proxies a plain HTTP request to the backend.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request) error {
	targetURL := fmt.Sprintf("%s://%s%s", h.scheme, h.addr, r.URL.RequestURI())

	proxyReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, r.Body)
	if err != nil {
		return fmt.Errorf("failed to create proxy request: %w", err)
	}

	copyHeaders(proxyReq.Header, r.Header)
	if h.host != "" {
		proxyReq.Host = h.host
	} else {
		proxyReq.Host = r.Host
	}

	start := time.Now()
	resp, err := h.client.Do(proxyReq)
	if err != nil {
		return fmt.Errorf("failed to forward request: %w", err)
	}
	defer resp.Body.Close()

	log.Info().
		Str("method", r.Method).
		Str("host", r.Host).
		Str("path", r.URL.Path).
		Str("target", targetURL).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request forwarded")

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to copy response: %w", err)
	}

	return nil
}

// newClient creates the shared HTTP client with an HTTP/2-enabled transport.
func newClient() (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure HTTP/2 transport: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Redirects belong to the client, not the proxy
			return http.ErrUseLastResponse
		},
	}, nil
}

// copyHeaders copies HTTP headers from src to dst
func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// isWebSocketUpgrade checks if the request is a WebSocket upgrade
func isWebSocketUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") == "websocket" &&
		r.Header.Get("Connection") == "Upgrade"
}
