package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "CRAGBOARD_"
	envConfig  = envPrefix + "CONFIG"
	listSep    = ","
	labelLimit = 32
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if CRAGBOARD_CONFIG is set
//  3. env (prefix CRAGBOARD_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CRAGBOARD_RESULTS_PATH -> results_path. Flat keys keep underscores.
	// CRAGBOARD_ROUTES is a comma separated list.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "routes" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.Routes) == 0:
		return fmt.Errorf("%w: routes must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.MilestoneLabel) == "":
		return fmt.Errorf("%w: milestone_label must not be empty", ErrInvalidConfig)
	case len(c.MilestoneLabel) > labelLimit || strings.ContainsAny(c.MilestoneLabel, ", \t\n\""):
		return fmt.Errorf("%w: milestone_label %q must be a single word", ErrInvalidConfig, c.MilestoneLabel)
	case c.RosterPath == "":
		return fmt.Errorf("%w: roster_path must not be empty", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendCSV:
		if c.ResultsPath == "" {
			return fmt.Errorf("%w: results_path must not be empty for the csv backend", ErrInvalidConfig)
		}
	case BackendBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("%w: badger_path must not be empty for the badger backend", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	seen := make(map[string]struct{}, len(c.Routes))
	for _, r := range c.Routes {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%w: route names must not be blank", ErrInvalidConfig)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w: duplicate route %q", ErrInvalidConfig, r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, listSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
