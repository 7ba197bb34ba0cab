package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 4241 {
		t.Errorf("expected default port 4241, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected default host localhost, got %s", cfg.Server.Host)
	}
	if cfg.API.URL != "http://localhost:8080/api" {
		t.Errorf("expected default api url http://localhost:8080/api, got %s", cfg.API.URL)
	}
	if cfg.API.GetTimeout() != 10*time.Second {
		t.Errorf("expected default api timeout 10s, got %s", cfg.API.GetTimeout())
	}
	if cfg.Data.Source != "api" {
		t.Errorf("expected default data source api, got %s", cfg.Data.Source)
	}
	if cfg.Storage.Badger.Path != "./data/mgnrega" {
		t.Errorf("expected default badger path ./data/mgnrega, got %s", cfg.Storage.Badger.Path)
	}
	if cfg.Export.Scale != 2 {
		t.Errorf("expected default export scale 2, got %g", cfg.Export.Scale)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("expected default config to validate, got %v", issues)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Server.Port != 4241 {
		t.Errorf("expected default port 4241, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
environment = "dev"

[server]
port = 9090
host = "0.0.0.0"

[api]
url = "https://nrega.example.org/api"
timeout = "5s"

[data]
source = "mock"
mock_delay = "10ms"

[cache]
ttl = "1m"
max_entries = 10

[storage.badger]
enabled = false
path = "/tmp/test-db"

[export]
remote_url = "ws://chrome:9222"
scale = 1.5

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if !cfg.IsDevMode() {
		t.Error("expected dev mode")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.API.URL != "https://nrega.example.org/api" {
		t.Errorf("unexpected api url %s", cfg.API.URL)
	}
	if cfg.API.GetTimeout() != 5*time.Second {
		t.Errorf("expected api timeout 5s, got %s", cfg.API.GetTimeout())
	}
	if cfg.Data.Source != "mock" || cfg.Data.GetMockDelay() != 10*time.Millisecond {
		t.Errorf("unexpected data config %+v", cfg.Data)
	}
	if cfg.Cache.GetTTL() != time.Minute || cfg.Cache.MaxEntries != 10 {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Storage.Badger.Enabled {
		t.Error("expected badger disabled")
	}
	if cfg.Export.RemoteURL != "ws://chrome:9222" || cfg.Export.Scale != 1.5 {
		t.Errorf("unexpected export config %+v", cfg.Export)
	}
	// Defaults survive partial sections.
	if !cfg.Export.Headless {
		t.Error("expected export.headless default true to be preserved")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	os.WriteFile(base, []byte("[server]\nport = 7000\nhost = \"base-host\"\n"), 0644)
	os.WriteFile(override, []byte("[server]\nport = 8000\n"), 0644)

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected later file to win (8000), got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "base-host" {
		t.Errorf("expected host from base file, got %s", cfg.Server.Host)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/portal.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("[server\nport = "), 0644)

	_, err := LoadFromFiles(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "bad.toml") {
		t.Errorf("expected error to name the file, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MGNREGA_SERVER_PORT", "9999")
	t.Setenv("MGNREGA_SERVER_HOST", "env-host")
	t.Setenv("MGNREGA_API_BASE", "http://backend:8080/api/")
	t.Setenv("MGNREGA_DATA_SOURCE", "MOCK")
	t.Setenv("MGNREGA_BADGER_PATH", "/env/path")
	t.Setenv("MGNREGA_CHROME_URL", "ws://chrome:9222")
	t.Setenv("MGNREGA_LOG_LEVEL", "error")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "env-host" {
		t.Errorf("expected host env-host, got %s", cfg.Server.Host)
	}
	if cfg.API.URL != "http://backend:8080/api" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.API.URL)
	}
	if cfg.Data.Source != "mock" {
		t.Errorf("expected data source mock, got %s", cfg.Data.Source)
	}
	if cfg.Storage.Badger.Path != "/env/path" {
		t.Errorf("expected badger path /env/path, got %s", cfg.Storage.Badger.Path)
	}
	if cfg.Export.RemoteURL != "ws://chrome:9222" {
		t.Errorf("expected chrome url override, got %s", cfg.Export.RemoteURL)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected log level error, got %s", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	t.Setenv("MGNREGA_SERVER_PORT", "not-a-number")

	cfg, _ := LoadFromFiles()
	if cfg.Server.Port != 4241 {
		t.Errorf("expected default port to be kept, got %d", cfg.Server.Port)
	}
}

func TestEnvOverridesFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.toml")
	os.WriteFile(path, []byte("[server]\nport = 7000\n"), 0644)
	t.Setenv("MGNREGA_SERVER_PORT", "5555")

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 5555 {
		t.Errorf("expected env to override file, got %d", cfg.Server.Port)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 8888, "flag-host")

	if cfg.Server.Port != 8888 {
		t.Errorf("expected port 8888, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "flag-host" {
		t.Errorf("expected host flag-host, got %s", cfg.Server.Host)
	}
}

func TestApplyFlagOverrides_ZeroPortNoOverride(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 0, "")

	if cfg.Server.Port != 4241 {
		t.Errorf("expected port 4241, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad source", func(c *Config) { c.Data.Source = "csv" }, "data.source"},
		{"relative api url", func(c *Config) { c.API.URL = "/api" }, "api.url"},
		{"bad timeout", func(c *Config) { c.API.Timeout = "soon" }, "api.timeout"},
		{"bad scale", func(c *Config) { c.Export.Scale = 0 }, "export.scale"},
		{"badger path", func(c *Config) { c.Storage.Badger.Path = "" }, "storage.badger.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			issues := cfg.Validate()
			if len(issues) == 0 {
				t.Fatalf("expected validation issue containing %q", tt.want)
			}
			if !strings.Contains(strings.Join(issues, "\n"), tt.want) {
				t.Errorf("expected issue containing %q, got %v", tt.want, issues)
			}
		})
	}
}

func TestValidate_MockSourceIgnoresAPIURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Data.Source = "mock"
	cfg.API.URL = ""

	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("expected no issues for mock source, got %v", issues)
	}
}

func TestBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 4241

	if got := cfg.BaseURL(); got != "http://localhost:4241" {
		t.Errorf("expected http://localhost:4241, got %s", got)
	}
}

func TestSearchPaths_Deduplicated(t *testing.T) {
	paths := SearchPaths()
	if len(paths) == 0 {
		t.Fatal("expected search paths")
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, _ := filepath.Abs(p)
		if seen[abs] {
			t.Errorf("duplicate search path %s", p)
		}
		seen[abs] = true
		if filepath.Base(p) != FileName {
			t.Errorf("unexpected file name in %s", p)
		}
	}
}

func TestDiscoverFile_FindsWorkingDirectoryConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if got := DiscoverFile(); got != "" {
		t.Fatalf("expected no config, got %s", got)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("environment = \"dev\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DiscoverFile(); got != FileName {
		t.Errorf("expected %s, got %s", FileName, got)
	}
}
