package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for structural errors. Pattern and
// template compilation errors are reported by the rule compiler instead.
func Validate(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if len(cfg.VHosts) == 0 {
		return fmt.Errorf("at least one vhost must be defined")
	}

	seen := make(map[string]bool)
	for i, vhost := range cfg.VHosts {
		if err := validateVHost(&vhost); err != nil {
			return fmt.Errorf("invalid vhost at index %d (%s): %w", i, vhost.Host, err)
		}
		host := strings.ToLower(vhost.Host)
		if seen[host] {
			return fmt.Errorf("duplicate vhost %q at index %d", vhost.Host, i)
		}
		seen[host] = true
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if len(cfg.Listen) == 0 {
		return fmt.Errorf("at least one listen address is required")
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must be positive")
	}
	if cfg.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must be positive")
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must be positive")
	}
	if cfg.RewriteLimit < 1 {
		return fmt.Errorf("rewrite_limit must be at least 1")
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", cfg.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[cfg.Format] {
		return fmt.Errorf("invalid format: %s (must be json or text)", cfg.Format)
	}

	return nil
}

func validateVHost(vhost *VHost) error {
	if vhost.Host == "" {
		return fmt.Errorf("host is required")
	}

	if strings.HasPrefix(vhost.Host, "*.") && len(vhost.Host) == 2 {
		return fmt.Errorf("wildcard host must name a domain")
	}

	for _, alias := range vhost.Aliases {
		if alias == "" {
			return fmt.Errorf("alias must not be empty")
		}
	}

	for i, route := range vhost.Routes {
		if err := validateRoute(&route); err != nil {
			return fmt.Errorf("invalid route at index %d (prefix %q): %w", i, route.Prefix, err)
		}
	}

	return nil
}

func validateRoute(route *Route) error {
	if route.Prefix != "" && !strings.HasPrefix(route.Prefix, "/") {
		return fmt.Errorf("prefix must start with /")
	}

	if route.Static != nil && route.Upstream != nil {
		return fmt.Errorf("route cannot have both static and upstream handlers")
	}

	if route.Static != nil && route.Static.Root == "" {
		return fmt.Errorf("static root is required")
	}

	if route.Upstream != nil && route.Upstream.Addr == "" {
		return fmt.Errorf("upstream addr is required")
	}

	for i, rule := range route.Rewrite {
		if err := validateRule(&rule); err != nil {
			return fmt.Errorf("invalid rewrite rule at index %d: %w", i, err)
		}
	}

	return nil
}

func validateRule(rule *RewriteRule) error {
	if rule.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}

	if rule.Target == "" {
		return fmt.Errorf("target is required")
	}

	validSubjects := map[string]bool{
		"path":       true,
		"path_query": true,
	}
	if !validSubjects[rule.Subject] {
		return fmt.Errorf("invalid subject: %s (must be path or path_query)", rule.Subject)
	}

	validActions := map[string]bool{
		"rewrite":  true,
		"redirect": true,
	}
	if !validActions[rule.Action] {
		return fmt.Errorf("invalid action: %s (must be rewrite or redirect)", rule.Action)
	}

	validControls := map[string]bool{
		"continue": true,
		"stop":     true,
		"loop":     true,
	}
	if !validControls[rule.Control] {
		return fmt.Errorf("invalid control: %s (must be continue, stop, or loop)", rule.Control)
	}

	if rule.Action != "redirect" && rule.Status != 0 {
		return fmt.Errorf("status is only valid for redirect rules")
	}

	for i, cond := range rule.Conditions {
		if cond.Pattern == "" {
			return fmt.Errorf("condition at index %d: pattern is required", i)
		}
		if (cond.Header == "") == (cond.Query == "") {
			return fmt.Errorf("condition at index %d: exactly one of header or query is required", i)
		}
	}

	return nil
}
