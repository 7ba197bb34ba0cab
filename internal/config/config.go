package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	API         APIConfig     `toml:"api"`
	Data        DataConfig    `toml:"data"`
	Cache       CacheConfig   `toml:"cache"`
	Storage     StorageConfig `toml:"storage"`
	Export      ExportConfig  `toml:"export"`
	MCP         MCPConfig     `toml:"mcp"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// APIConfig points at the upstream MGNREGA data API.
type APIConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the request timeout.
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DataConfig selects where district reports come from.
// Source is "api" (upstream) or "mock" (bundled fixture).
type DataConfig struct {
	Source      string `toml:"source"`
	MockDelay   string `toml:"mock_delay"`
	FixturePath string `toml:"fixture_path"` // optional .json/.yaml override for the mock fixture
}

// GetMockDelay parses the simulated latency of the mock source.
func (c *DataConfig) GetMockDelay() time.Duration {
	d, err := time.ParseDuration(c.MockDelay)
	if err != nil || d < 0 {
		return 250 * time.Millisecond
	}
	return d
}

// CacheConfig controls the in-memory report cache.
type CacheConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses the cache TTL.
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
// The store keeps last-known-good district reports.
type BadgerConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ExportConfig controls the headless browser used for PDF export.
type ExportConfig struct {
	Enabled    bool    `toml:"enabled"`
	RemoteURL  string  `toml:"remote_url"` // devtools endpoint of an external headless-shell
	ChromePath string  `toml:"chrome_path"`
	Headless   bool    `toml:"headless"`
	Timeout    string  `toml:"timeout"`
	Scale      float64 `toml:"scale"`
}

// GetTimeout parses the per-export timeout.
func (c *ExportConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// MCPConfig toggles the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the portal runs with environment "dev".
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the portal's own externally reachable URL.
func (c *Config) BaseURL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// Validate returns a list of human-readable configuration problems.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}

	switch c.Data.Source {
	case "api":
		u, err := url.Parse(c.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, fmt.Sprintf("api.url must be an absolute http(s) URL (got %q)", c.API.URL))
		}
	case "mock":
	default:
		issues = append(issues, fmt.Sprintf("data.source must be \"api\" or \"mock\" (got %q)", c.Data.Source))
	}

	if c.API.Timeout != "" {
		if _, err := time.ParseDuration(c.API.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("api.timeout is not a duration: %q", c.API.Timeout))
		}
	}

	if c.Export.Scale <= 0 || c.Export.Scale > 4 {
		issues = append(issues, fmt.Sprintf("export.scale must be in (0, 4] (got %g)", c.Export.Scale))
	}

	if c.Storage.Badger.Enabled && c.Storage.Badger.Path == "" {
		issues = append(issues, "storage.badger.path is required when storage.badger.enabled is true")
	}

	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MGNREGA_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MGNREGA_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("MGNREGA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MGNREGA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if base := os.Getenv("MGNREGA_API_BASE"); base != "" {
		config.API.URL = strings.TrimRight(base, "/")
	}
	if timeout := os.Getenv("MGNREGA_API_TIMEOUT"); timeout != "" {
		config.API.Timeout = timeout
	}
	if source := os.Getenv("MGNREGA_DATA_SOURCE"); source != "" {
		config.Data.Source = strings.ToLower(source)
	}
	if badgerPath := os.Getenv("MGNREGA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if remote := os.Getenv("MGNREGA_CHROME_URL"); remote != "" {
		config.Export.RemoteURL = remote
	}
	if level := os.Getenv("MGNREGA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MGNREGA_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
