package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"article-reader/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	LogLevel       string
	DataDir        string
	RemoteBackend  string
	APIBaseURL     string
	SupabaseURL    string
	SupabaseKey    string
	AllowedOrigins []string
	FetchTimeout   int
}

// fileSettings mirrors the optional settings.yaml kept in the data
// directory. Environment variables override anything set here.
type fileSettings struct {
	ServerPort     string   `yaml:"server_port"`
	LogLevel       string   `yaml:"log_level"`
	RemoteBackend  string   `yaml:"remote_backend"`
	APIBaseURL     string   `yaml:"api_base_url"`
	SupabaseURL    string   `yaml:"supabase_url"`
	SupabaseKey    string   `yaml:"supabase_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	FetchTimeout   int      `yaml:"fetch_timeout_seconds"`
}

// NewConfig builds the configuration from the settings file and the
// environment, with environment values taking precedence.
func NewConfig() domain.Config {
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	settings := loadSettingsFile(filepath.Join(dataDir, "settings.yaml"))

	cfg := &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:     getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", orDefault(settings.ServerPort, "8080"))),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", orDefault(settings.LogLevel, "info")),
		DataDir:        dataDir,
		RemoteBackend:  getEnvOrDefault("REMOTE_BACKEND", orDefault(settings.RemoteBackend, "rest")),
		APIBaseURL:     getEnvOrDefault("API_BASE_URL", orDefault(settings.APIBaseURL, "http://localhost:8000")),
		SupabaseURL:    getEnvOrDefault("SUPABASE_URL", settings.SupabaseURL),
		SupabaseKey:    getEnvOrDefault("SUPABASE_ANON_KEY", settings.SupabaseKey),
		AllowedOrigins: splitOrigins(getEnvOrDefault("ALLOWED_ORIGINS", strings.Join(settings.AllowedOrigins, ","))),
		FetchTimeout:   getEnvIntOrDefault("FETCH_TIMEOUT_SECONDS", orDefaultInt(settings.FetchTimeout, 15)),
	}
	return cfg
}

// GetServerPort returns the HTTP listening port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetDataDir returns the directory holding local state
func (c *AppConfig) GetDataDir() string {
	return c.DataDir
}

// GetDatabasePath returns the path of the SQLite database file
func (c *AppConfig) GetDatabasePath() string {
	return filepath.Join(c.DataDir, "reader.db")
}

// GetRemoteBackend returns which highlight backend to sync against,
// "rest" or "supabase"
func (c *AppConfig) GetRemoteBackend() string {
	return c.RemoteBackend
}

// GetAPIBaseURL returns the base URL of the highlight REST backend
func (c *AppConfig) GetAPIBaseURL() string {
	return c.APIBaseURL
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetAllowedOrigins returns the origins allowed to call the local API
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetFetchTimeout returns the article fetch timeout in seconds
func (c *AppConfig) GetFetchTimeout() int {
	return c.FetchTimeout
}

// loadSettingsFile reads the optional settings file. A missing or broken
// file yields empty settings; the defaults cover the rest.
func loadSettingsFile(path string) fileSettings {
	var settings fileSettings
	data, err := os.ReadFile(path)
	if err != nil {
		return settings
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fileSettings{}
	}
	return settings
}

func splitOrigins(value string) []string {
	if value == "" {
		return []string{"*"}
	}
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func orDefaultInt(value, defaultValue int) int {
	if value > 0 {
		return value
	}
	return defaultValue
}
