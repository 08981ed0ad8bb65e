package config

import "os"

const (
	// RedisURLEnvVar is the well-known environment variable holding the
	// queue backend address.
	RedisURLEnvVar = "REDIS_URL"

	// DefaultRedisURL is the hard-coded local fallback.
	DefaultRedisURL = "redis://localhost:6379/0"
)

// RedisConfig configures the Redis queue backend connection.
type RedisConfig struct {
	URL string
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL: ResolveRedisURL("", os.LookupEnv),
	}
}

// ResolveRedisURL resolves the effective backend address from the fallback
// chain: explicit override, then the REDIS_URL environment variable (read
// through the supplied lookup), then the hard-coded local default. The
// lookup is injected so the chain stays testable without mutating the
// process environment.
func ResolveRedisURL(override string, lookup func(string) (string, bool)) string {
	if override != "" {
		return override
	}
	if lookup != nil {
		if v, ok := lookup(RedisURLEnvVar); ok && v != "" {
			return v
		}
	}
	return DefaultRedisURL
}
