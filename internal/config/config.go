package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values for optional fields
func setDefaults(cfg *Config) {
	// Server defaults
	if len(cfg.Server.Listen) == 0 {
		cfg.Server.Listen = []string{":8080"}
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.RewriteLimit == 0 {
		cfg.Server.RewriteLimit = 100
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}

	// VHost defaults
	for i := range cfg.VHosts {
		vhost := &cfg.VHosts[i]

		// A vhost without routes covers the whole host with an empty rule list
		if len(vhost.Routes) == 0 {
			vhost.Routes = []Route{{}}
		}

		for j := range vhost.Routes {
			route := &vhost.Routes[j]

			for k := range route.Rewrite {
				rule := &route.Rewrite[k]
				if rule.Subject == "" {
					rule.Subject = "path"
				}
				if rule.Action == "" {
					rule.Action = "rewrite"
				}
				if rule.Control == "" {
					rule.Control = "continue"
				}
				// Temporary redirect unless the rule says otherwise
				if rule.Action == "redirect" && rule.Status == 0 {
					rule.Status = 302
				}
			}

			if route.Static != nil && len(route.Static.Index) == 0 {
				route.Static.Index = []string{"index.html"}
			}
		}
	}
}
