package storage

// StorageConfig holds configuration for the storage backend.
type StorageConfig struct {
	// Redis configuration
	Redis RedisConfig `json:"redis"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	// Enabled indicates if Redis storage is enabled
	Enabled bool `json:"enabled"`

	// Address is the Redis server address (host:port)
	Address string `json:"address"`

	// Password is the Redis password (optional)
	Password string `json:"password"`

	// Database is the Redis database number (0-15)
	Database int `json:"database"`

	// KeyPrefix is the prefix for all Redis keys (e.g. "klaxon")
	KeyPrefix string `json:"key_prefix"`
}
