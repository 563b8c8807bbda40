package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every COGNIWEAVE_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3071 {
		t.Errorf("Server.Port = %d, want 3071", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("Server.MaxConnections = %d, want 64", cfg.Server.MaxConnections)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("Server.APIToken = %q, want empty", cfg.Server.APIToken)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if len(cfg.Articles.Patterns) != 1 || cfg.Articles.Patterns[0] != "**/*.{txt,md,html,htm,pdf}" {
		t.Errorf("Articles.Patterns = %v", cfg.Articles.Patterns)
	}
	if !cfg.Articles.Watch {
		t.Error("Articles.Watch = false, want true")
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "cogniweave") {
		t.Errorf("Storage.DataDir = %q, want a cogniweave directory", cfg.Storage.DataDir)
	}
}

// TestMissingFile verifies a missing config file falls back to defaults.
func TestMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "absent.json")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3071 {
		t.Errorf("Server.Port = %d, want 3071", cfg.Server.Port)
	}
}

// TestFileParsing verifies that all fields are correctly read from the JSON file.
func TestFileParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{
  "server.port": 5000,
  "server.max_connections": 8,
  "server.api_token": "ignored-in-file",
  "storage.data_dir": "/tmp/cogniweave-test",
  "log.level": "debug",
  "log.format": "json",
  "articles.dir": "/srv/articles",
  "articles.patterns": ["*.md", "notes/**/*.txt"],
  "articles.watch": false,
  "transform.dictionary_file": "/etc/cogniweave/terms.yaml"
}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 8 {
		t.Errorf("Server.MaxConnections = %d, want 8", cfg.Server.MaxConnections)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("Server.APIToken = %q, secrets must not be read from file", cfg.Server.APIToken)
	}
	if cfg.Storage.DataDir != "/tmp/cogniweave-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Articles.Dir != "/srv/articles" {
		t.Errorf("Articles.Dir = %q", cfg.Articles.Dir)
	}
	if len(cfg.Articles.Patterns) != 2 || cfg.Articles.Patterns[1] != "notes/**/*.txt" {
		t.Errorf("Articles.Patterns = %v", cfg.Articles.Patterns)
	}
	if cfg.Articles.Watch {
		t.Error("Articles.Watch = true, want false")
	}
	if cfg.Transform.DictionaryFile != "/etc/cogniweave/terms.yaml" {
		t.Errorf("Transform.DictionaryFile = %q", cfg.Transform.DictionaryFile)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 5000, "articles.watch": true}`)

	t.Setenv("COGNIWEAVE_SERVER_PORT", "6000")
	t.Setenv("COGNIWEAVE_API_TOKEN", "env-token")
	t.Setenv("COGNIWEAVE_ARTICLES_WATCH", "false")
	t.Setenv("COGNIWEAVE_ARTICLES_PATTERNS", "a/*.md, b/*.txt")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "env-token" {
		t.Errorf("Server.APIToken = %q, want env-token", cfg.Server.APIToken)
	}
	if cfg.Articles.Watch {
		t.Error("Articles.Watch = true, want false")
	}
	if got := strings.Join(cfg.Articles.Patterns, "|"); got != "a/*.md|b/*.txt" {
		t.Errorf("Articles.Patterns = %q", got)
	}
}

// TestBadEnvValueKeepsDefault verifies unparsable env values are ignored.
func TestBadEnvValueKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGNIWEAVE_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newFileBackend(writeTempConfig(t, `{}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3071 {
		t.Errorf("Server.Port = %d, want 3071", cfg.Server.Port)
	}
}

// TestInvalidValues verifies semantic validation of loaded values.
func TestInvalidValues(t *testing.T) {
	tests := map[string]string{
		"port":        `{"server.port": 70000}`,
		"connections": `{"server.max_connections": 0}`,
		"level":       `{"log.level": "loud"}`,
		"format":      `{"log.format": "xml"}`,
		"fractional":  `{"server.port": 80.5}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			if _, err := loadWith(newFileBackend(writeTempConfig(t, content))); err == nil {
				t.Errorf("expected error for %s", content)
			}
		})
	}
}

// TestSetKey verifies values written through setKey are read back by loadWith.
func TestSetKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	b := newFileBackend(path)

	for key, value := range map[string]string{
		"server.port":       "4100",
		"articles.watch":    "false",
		"articles.patterns": "*.md,,*.txt",
		"articles.dir":      "/data/articles",
	} {
		if err := setKey(b, key, value); err != nil {
			t.Fatalf("setKey(%s): %v", key, err)
		}
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Articles.Watch {
		t.Error("Articles.Watch = true, want false")
	}
	if got := strings.Join(cfg.Articles.Patterns, "|"); got != "*.md|*.txt" {
		t.Errorf("Articles.Patterns = %q", got)
	}
	if cfg.Articles.Dir != "/data/articles" {
		t.Errorf("Articles.Dir = %q", cfg.Articles.Dir)
	}
}

func TestSetKey_Rejects(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.json"))

	tests := []struct{ key, value, want string }{
		{"server.api_token", "x", "environment variable COGNIWEAVE_API_TOKEN"},
		{"server.colour", "x", "unknown config key"},
		{"server.port", "abc", "invalid integer"},
		{"articles.watch", "maybe", "invalid bool"},
		{"articles.patterns", " , ", "at least one value"},
	}
	for _, tt := range tests {
		err := setKey(b, tt.key, tt.value)
		if err == nil {
			t.Errorf("setKey(%s, %q) = nil, want error", tt.key, tt.value)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("setKey(%s) error = %q, want it to contain %q", tt.key, err, tt.want)
		}
	}
}

func TestShowAll_MasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Server.APIToken = "hunter2"

	var found bool
	for _, k := range ShowAll(cfg) {
		if k.Key == "server.api_token" {
			found = true
			if k.Value != "(set)" {
				t.Errorf("api token shown as %q", k.Value)
			}
		}
		if strings.Contains(k.Value, "hunter2") {
			t.Errorf("secret leaked in %s", k.Key)
		}
	}
	if !found {
		t.Error("server.api_token missing from ShowAll")
	}
}

func TestValidKeys_ExcludesSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "server.api_token" {
			t.Error("ValidKeys includes secret key")
		}
	}
	if len(ValidKeys()) != len(specs)-1 {
		t.Errorf("ValidKeys() has %d keys, want %d", len(ValidKeys()), len(specs)-1)
	}
}

func TestConfigFilePath_EnvOverride(t *testing.T) {
	t.Setenv("COGNIWEAVE_CONFIG", "/tmp/custom.json")
	if got := configFilePath(); got != "/tmp/custom.json" {
		t.Errorf("configFilePath() = %q", got)
	}

	t.Setenv("COGNIWEAVE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := configFilePath(); got != filepath.Join("/xdg", "cogniweave", "config.json") {
		t.Errorf("configFilePath() = %q", got)
	}
}
