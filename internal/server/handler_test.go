package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostweave/go-rewriter/internal/config"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, target, host string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	if host != "" {
		r.Host = host
	}
	for k, vv := range header {
		for _, v := range vv {
			r.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestServeRedirect(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/legacy$",
						Action:  "redirect",
						Status:  301,
						Target:  "https://example.com/",
					}},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/legacy", "example.com", nil)
	assert.Equal(t, 301, w.Code)
	assert.Equal(t, "https://example.com/", w.Header().Get("Location"))
}

func TestServeRewriteToStaticFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("content"), 0644))

	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/old/(.*)$",
						Target:  "/$1",
						Control: "stop",
					}},
					Static: &config.StaticConfig{Root: root},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/old/page.html", "example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content", w.Body.String())
}

func TestServeNoScope(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{Host: "example.com", Routes: []config.Route{{}}},
		},
	})

	w := serve(srv, http.MethodGet, "/", "unknown.net", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeHostIsolation(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "a.example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/page$",
						Action:  "redirect",
						Status:  302,
						Target:  "/moved",
					}},
				}},
			},
			{Host: "b.example.com", Routes: []config.Route{{}}},
		},
	})

	w := serve(srv, http.MethodGet, "/page", "a.example.com", nil)
	assert.Equal(t, 302, w.Code)

	// Same path on the other host: no rules apply, no handler, 404.
	w = serve(srv, http.MethodGet, "/page", "b.example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestServeLoopFault(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		Server: config.ServerConfig{RewriteLimit: 3},
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/x",
						Target:  "/x/",
						Control: "loop",
					}},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/x", "example.com", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeConditionGating(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern:    "^/page$",
						Action:     "redirect",
						Status:     302,
						Target:     "/mobile",
						Conditions: []config.Condition{{Header: "X-Mobile", Pattern: "^yes$"}},
					}},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/page", "example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	header := http.Header{}
	header.Set("X-Mobile", "yes")
	w = serve(srv, http.MethodGet, "/page", "example.com", header)
	assert.Equal(t, 302, w.Code)
	assert.Equal(t, "/mobile", w.Header().Get("Location"))
}

func TestServeStripPrefix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("stripped"), 0644))

	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Prefix:      "/sub",
					StripPrefix: true,
					Static:      &config.StaticConfig{Root: root},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/sub/file.txt", "example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stripped", w.Body.String())
}

func TestServeRequestID(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{Host: "example.com", Routes: []config.Route{{}}},
		},
	})

	w := serve(srv, http.MethodGet, "/", "example.com", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestReloadSwapsPipeline(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/a$",
						Action:  "redirect",
						Status:  302,
						Target:  "/old-target",
					}},
				}},
			},
		},
	})

	w := serve(srv, http.MethodGet, "/a", "example.com", nil)
	assert.Equal(t, "/old-target", w.Header().Get("Location"))

	err := srv.Reload(&config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/a$",
						Action:  "redirect",
						Status:  302,
						Target:  "/new-target",
					}},
				}},
			},
		},
	})
	require.NoError(t, err)

	w = serve(srv, http.MethodGet, "/a", "example.com", nil)
	assert.Equal(t, "/new-target", w.Header().Get("Location"))
}

func TestReloadKeepsPipelineOnError(t *testing.T) {
	srv := newTestServer(t, &config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{
						Pattern: "^/a$",
						Action:  "redirect",
						Status:  302,
						Target:  "/target",
					}},
				}},
			},
		},
	})

	err := srv.Reload(&config.Config{
		VHosts: []config.VHost{
			{
				Host: "example.com",
				Routes: []config.Route{{
					Rewrite: []config.RewriteRule{{Pattern: "^/x($", Target: "/y"}},
				}},
			},
		},
	})
	require.Error(t, err)

	w := serve(srv, http.MethodGet, "/a", "example.com", nil)
	assert.Equal(t, "/target", w.Header().Get("Location"))
}
