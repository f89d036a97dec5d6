package static

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hostweave/go-rewriter/internal/config"
)

// Handler serves files from a configured root directory. Directory requests
// fall back to the configured index files, bare directory paths are
// canonicalized with a redirect, and misses can serve a custom 404 page.
type Handler struct {
	root    string
	index   []string
	page404 string
}

// New creates a static file handler for the given configuration.
func New(cfg *config.StaticConfig) *Handler {
	return &Handler{
		root:    cfg.Root,
		index:   cfg.Index,
		page404: cfg.Page404,
	}
}

// Handle serves the request from the root directory. It always produces a
// response.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return true
	}

	// Clean with a forced leading slash keeps the lookup inside the root.
	urlPath := path.Clean("/" + r.URL.Path)
	filePath := filepath.Join(h.root, filepath.FromSlash(urlPath))

	info, err := os.Stat(filePath)
	if err != nil {
		h.notFound(w, r)
		return true
	}

	if info.IsDir() {
		// Canonicalize /dir to /dir/ so relative links resolve.
		if !strings.HasSuffix(r.URL.Path, "/") {
			target := urlPath + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return true
		}

		for _, index := range h.index {
			candidate := filepath.Join(filePath, index)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				http.ServeFile(w, r, candidate)
				return true
			}
		}

		h.notFound(w, r)
		return true
	}

	http.ServeFile(w, r, filePath)
	return true
}

// notFound serves the configured 404 page, or a plain not-found response
// when none is configured or the page itself is missing.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if h.page404 != "" {
		pagePath := filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+h.page404)))
		body, err := os.ReadFile(pagePath)
		if err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			if _, err := w.Write(body); err != nil {
				log.Debug().Err(err).Msg("failed to write 404 page")
			}
			return
		}
		log.Warn().Err(err).Str("page", h.page404).Msg("404 page not readable")
	}

	http.NotFound(w, r)
}
