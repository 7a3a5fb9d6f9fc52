// Package config defines service configuration structures and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer optional file and env vars on top via Load.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Store backend names accepted by StoreBackend.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the persistence layer: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`

	// JWTSecret verifies bearer tokens issued by the identity service.
	JWTSecret string `koanf:"jwt_secret"`

	// MaxLeaderboardLimit caps the leaderboard page size.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultLeaderboardLimit is the page size when none is requested.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// DefaultHistoryLimit is the history page size when none is requested.
	DefaultHistoryLimit int `koanf:"default_history_limit"`

	// DedupeSize bounds the idempotency token cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ReconcileQueueSize bounds the aggregate reconciliation queue.
	ReconcileQueueSize int `koanf:"reconcile_queue_size"`

	// ReconcileWorkerCount sets the number of reconciliation workers.
	ReconcileWorkerCount int `koanf:"reconcile_worker_count"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":8080",
		StoreBackend:            StoreMemory,
		JWTSecret:               "dev-secret-change-me",
		MaxLeaderboardLimit:     100,
		DefaultLeaderboardLimit: 50,
		DefaultHistoryLimit:     20,
		DedupeSize:              50_000,
		ReconcileQueueSize:      10_000,
		ReconcileWorkerCount:    2,
	}
}
