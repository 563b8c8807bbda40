package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Articles  ArticlesConfig
	Transform TransformConfig
}

type ServerConfig struct {
	Port           int
	MaxConnections int
	// APIToken enables bearer auth when non-empty. Env only.
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

type ArticlesConfig struct {
	Dir      string
	Patterns []string
	Watch    bool
}

type TransformConfig struct {
	// DictionaryFile replaces the built-in vocabulary table when set.
	DictionaryFile string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           3071,
			MaxConnections: 64,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Articles: ArticlesConfig{
			Patterns: []string{"**/*.{txt,md,html,htm,pdf}"},
			Watch:    true,
		},
	}
}

// Load reads configuration from the JSON config file and environment
// variables. The file lives at $XDG_CONFIG_HOME/cogniweave/config.json
// unless COGNIWEAVE_CONFIG names another path.
//
// Environment variables (COGNIWEAVE_*) override file values.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxConnections < 1 {
		errs = append(errs, fmt.Errorf("server.max_connections must be positive, got %d", c.Server.MaxConnections))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(c.Articles.Patterns) == 0 {
		errs = append(errs, errors.New("articles.patterns is empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log.level %q", s)
}
