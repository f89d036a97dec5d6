package config

import "time"

// Config represents the entire application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	VHosts  []VHost       `yaml:"vhosts"`
}

// ServerConfig contains global server settings
type ServerConfig struct {
	Listen       []string      `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	RewriteLimit int           `yaml:"rewrite_limit"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
}

// VHost binds a host name (exact or "*.domain" wildcard) to its routes
type VHost struct {
	Host    string   `yaml:"host"`
	Aliases []string `yaml:"aliases,omitempty"`
	Default bool     `yaml:"default,omitempty"`
	Routes  []Route  `yaml:"routes"`
}

// Route scopes rewrite rules and a handler to a path prefix within a vhost.
// An empty prefix covers the whole host.
type Route struct {
	Prefix      string          `yaml:"prefix,omitempty"`
	StripPrefix bool            `yaml:"strip_prefix,omitempty"`
	Rewrite     []RewriteRule   `yaml:"rewrite,omitempty"`
	Static      *StaticConfig   `yaml:"static,omitempty"`
	Upstream    *UpstreamConfig `yaml:"upstream,omitempty"`
}

// RewriteRule is one declarative rewrite or redirect rule
type RewriteRule struct {
	Pattern    string      `yaml:"pattern"`
	Subject    string      `yaml:"subject,omitempty"` // path (default) or path_query
	Conditions []Condition `yaml:"conditions,omitempty"`
	Action     string      `yaml:"action,omitempty"` // rewrite (default) or redirect
	Target     string      `yaml:"target"`
	Status     int         `yaml:"status,omitempty"`  // redirect status code
	Control    string      `yaml:"control,omitempty"` // continue (default), stop or loop
}

// Condition is an auxiliary regex test against a header or query parameter.
// Exactly one of Header and Query names the source.
type Condition struct {
	Header  string `yaml:"header,omitempty"`
	Query   string `yaml:"query,omitempty"`
	Pattern string `yaml:"pattern"`
}

// StaticConfig configures the static file handler of a route
type StaticConfig struct {
	Root    string   `yaml:"root"`
	Index   []string `yaml:"index,omitempty"`
	Page404 string   `yaml:"page_404,omitempty"`
}

// UpstreamConfig configures the reverse proxy handler of a route
type UpstreamConfig struct {
	Addr string `yaml:"addr"`
	TLS  bool   `yaml:"tls,omitempty"`
	Host string `yaml:"host,omitempty"`
}
