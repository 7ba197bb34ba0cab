package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		API: APIConfig{
			URL:     "http://localhost:8080/api",
			Timeout: "10s",
		},
		Data: DataConfig{
			Source:    "api",
			MockDelay: "250ms",
		},
		Cache: CacheConfig{
			TTL:        "15m",
			MaxEntries: 500,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: true,
				Path:    "./data/mgnrega",
			},
		},
		Export: ExportConfig{
			Enabled:  true,
			Headless: true,
			Timeout:  "45s",
			Scale:    2,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
