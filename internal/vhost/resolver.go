package vhost

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	radix "github.com/armon/go-radix"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/hostweave/go-rewriter/internal/config"
	"github.com/hostweave/go-rewriter/internal/rewrite"
)

const (
	hostCacheSize = 1024
	hostCacheTTL  = 10 * time.Minute
)

// HandlerBuilder turns the handler section of a route into a pipeline
// handler, or nil when the route has none.
type HandlerBuilder func(route *config.Route) (Handler, error)

// hostEntry holds the scopes of one vhost, ordered longest prefix first with
// declaration order breaking ties.
type hostEntry struct {
	host   string
	scopes []*Scope
}

// Resolver maps a request's host and path to the scope that applies. It is
// built once from configuration, performs no mutation afterwards and is safe
// for unsynchronized concurrent reads. A configuration reload builds a whole
// new resolver instead of mutating this one.
type Resolver struct {
	exact        map[string]*hostEntry
	wildcards    *radix.Tree
	aliases      map[string]*hostEntry
	defaultEntry *hostEntry

	// Memoizes host string to vhost lookups; the Host header population of
	// a deployment is small and highly repetitive.
	cache *expirable.LRU[string, *hostEntry]
}

// NewResolver compiles the vhost bindings into a lookup structure. Rule
// compilation errors are reported with the vhost host name and route index.
func NewResolver(vhosts []config.VHost, build HandlerBuilder) (*Resolver, error) {
	r := &Resolver{
		exact:     make(map[string]*hostEntry),
		wildcards: radix.New(),
		aliases:   make(map[string]*hostEntry),
		cache:     expirable.NewLRU[string, *hostEntry](hostCacheSize, nil, hostCacheTTL),
	}

	for _, vh := range vhosts {
		entry := &hostEntry{host: vh.Host}

		for i := range vh.Routes {
			route := &vh.Routes[i]

			rules, err := rewrite.Compile(route.Rewrite)
			if err != nil {
				return nil, fmt.Errorf("vhost %s route %d: %w", vh.Host, i, err)
			}

			var handler Handler
			if build != nil {
				handler, err = build(route)
				if err != nil {
					return nil, fmt.Errorf("vhost %s route %d: %w", vh.Host, i, err)
				}
			}

			entry.scopes = append(entry.scopes, &Scope{
				Host:        vh.Host,
				Prefix:      route.Prefix,
				StripPrefix: route.StripPrefix,
				Rules:       rules,
				Handler:     handler,
			})
		}

		// Longest prefix first; SliceStable keeps declaration order for
		// equal-length prefixes.
		sort.SliceStable(entry.scopes, func(a, b int) bool {
			return len(entry.scopes[a].Prefix) > len(entry.scopes[b].Prefix)
		})

		host := strings.ToLower(vh.Host)
		if domain, ok := strings.CutPrefix(host, "*."); ok {
			r.wildcards.Insert(reverseHost(domain)+".", entry)
		} else {
			r.exact[host] = entry
		}

		for _, alias := range vh.Aliases {
			r.aliases[strings.ToLower(alias)] = entry
		}

		if vh.Default {
			if r.defaultEntry != nil {
				log.Warn().
					Str("host", r.defaultEntry.host).
					Str("ignored", vh.Host).
					Msg("multiple default vhosts, keeping the first")
			} else {
				r.defaultEntry = entry
			}
		}
	}

	return r, nil
}

// Resolve returns the scope applying to the given host and path, or nil when
// no vhost covers the host or none of its prefixes cover the path.
func (r *Resolver) Resolve(host, path string) *Scope {
	entry := r.resolveHost(normalizeHost(host))
	if entry == nil {
		return nil
	}

	for _, scope := range entry.scopes {
		if scope.matches(path) {
			return scope
		}
	}
	return nil
}

// resolveHost finds the vhost for a normalized host name. Precedence: exact
// name, alias, longest wildcard, default.
func (r *Resolver) resolveHost(host string) *hostEntry {
	if entry, ok := r.cache.Get(host); ok {
		return entry
	}

	entry := r.lookupHost(host)
	r.cache.Add(host, entry)
	return entry
}

func (r *Resolver) lookupHost(host string) *hostEntry {
	if entry, ok := r.exact[host]; ok {
		return entry
	}
	if entry, ok := r.aliases[host]; ok {
		return entry
	}
	if host != "" {
		// The reversed-host key makes every wildcard domain a prefix of the
		// hosts it covers; the longest prefix is the most specific pattern.
		if _, value, ok := r.wildcards.LongestPrefix(reverseHost(host) + "."); ok {
			return value.(*hostEntry)
		}
	}
	return r.defaultEntry
}

// normalizeHost lowercases the host and strips an explicit port suffix.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// reverseHost reverses the characters of a host name so that domain
// suffixes become radix tree prefixes.
func reverseHost(host string) string {
	b := []byte(host)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
