package config

import "time"

type StoreConfig interface {
	GetRedisAddr() string
	GetStoreTimeout() time.Duration
	GetCleanupInterval() time.Duration
}

type Stores struct{}

var _ StoreConfig = Stores{}

// GetRedisAddr returns the Redis address for the revocation store and
// lockout counters. Empty selects the in-memory implementations.
func (Stores) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Stores) GetStoreTimeout() time.Duration {
	return GetDurationEnv("STORE_TIMEOUT", 2*time.Second)
}

func (Stores) GetCleanupInterval() time.Duration {
	return GetDurationEnv("STORE_CLEANUP_INTERVAL", 5*time.Minute)
}
