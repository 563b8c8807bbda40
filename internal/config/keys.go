package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	// kList is a comma-separated list of strings.
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "COGNIWEAVE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_connections", typ: kInt, env: "COGNIWEAVE_SERVER_MAX_CONNECTIONS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConnections },
	},
	{
		key: "server.api_token", typ: kString, env: "COGNIWEAVE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "COGNIWEAVE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "COGNIWEAVE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "COGNIWEAVE_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "articles.dir", typ: kString, env: "COGNIWEAVE_ARTICLES_DIR",
		apply:   func(cfg *Config, v any) { cfg.Articles.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Articles.Dir },
	},
	{
		key: "articles.patterns", typ: kList, env: "COGNIWEAVE_ARTICLES_PATTERNS",
		apply:   func(cfg *Config, v any) { cfg.Articles.Patterns = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Articles.Patterns, ",") },
	},
	{
		key: "articles.watch", typ: kBool, env: "COGNIWEAVE_ARTICLES_WATCH",
		apply:   func(cfg *Config, v any) { cfg.Articles.Watch = v.(bool) },
		extract: func(cfg Config) any { return cfg.Articles.Watch },
	},
	{
		key: "transform.dictionary_file", typ: kString, env: "COGNIWEAVE_TRANSFORM_DICTIONARY_FILE",
		apply:   func(cfg *Config, v any) { cfg.Transform.DictionaryFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Transform.DictionaryFile },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					slog.Warn("could not parse bool from config key, using default", "key", s.key, "value", v, "error", err)
				}
			}
		case kList:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if list := splitList(v); ok && len(list) > 0 {
				s.apply(cfg, list)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("could not parse bool from env var, using default", "env", s.env, "value", raw, "error", err)
			}
		case kList:
			if list := splitList(raw); len(list) > 0 {
				s.apply(cfg, list)
			}
		}
	}
}
