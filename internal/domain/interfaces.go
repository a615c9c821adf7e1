package domain

import "context"

// Connectivity reports whether the remote highlight service is reachable.
// The sync engine uses it to tell "offline" apart from "rejected".
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetDataDir() string
	GetDatabasePath() string
	GetRemoteBackend() string
	GetAPIBaseURL() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetAllowedOrigins() []string
	GetFetchTimeout() int
}
