package vhost

import (
	"net/http"
	"strings"

	"github.com/hostweave/go-rewriter/internal/rewrite"
)

// Handler is one pipeline module bound to a scope. Handle processes the
// request and reports whether it produced a response (short-circuit) or left
// the request for the caller's fallback.
type Handler interface {
	Handle(w http.ResponseWriter, r *http.Request) bool
}

// Scope binds a host and path prefix to the rule list and handler that apply
// to matching requests. Scopes are immutable once the resolver is built.
type Scope struct {
	Host        string
	Prefix      string
	StripPrefix bool
	Rules       rewrite.RuleList
	Handler     Handler
}

// matches reports whether the scope's prefix covers the given path. A prefix
// only matches at a path segment boundary: "/sub" covers "/sub" and
// "/sub/x" but never "/subx". A trailing-slash prefix also covers the bare
// directory path, so "/sub/" covers "/sub".
func (s *Scope) matches(path string) bool {
	if s.Prefix == "" || s.Prefix == "/" {
		return true
	}

	prefix := strings.TrimSuffix(s.Prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// RewritePath returns the path the scope's rules and handler should see.
// With strip_prefix set, the scope prefix is removed; the result always
// keeps a leading slash.
func (s *Scope) RewritePath(path string) string {
	if !s.StripPrefix || s.Prefix == "" || s.Prefix == "/" {
		return path
	}

	prefix := strings.TrimSuffix(s.Prefix, "/")
	tail := strings.TrimPrefix(path, prefix)
	if !strings.HasPrefix(tail, "/") {
		tail = "/" + tail
	}
	return tail
}
