package redis

import "time"

// Config holds redis connection and behavior settings
type Config struct {
	// URL is the redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ProfileTTL bounds how long an idle profile is kept. Zero means keep
	// forever.
	ProfileTTL time.Duration
}

// DefaultConfig returns sensible defaults for redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		ProfileTTL:   0,
	}
}
