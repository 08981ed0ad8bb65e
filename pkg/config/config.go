// Package config loads the process configuration from the environment.
// Every value has a working local default so a bare `go run ./cmd` starts
// against localhost services.
package config

// Config is the root configuration for the taskrelay process.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Taskq    TaskqConfig
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port        int
	CORSOrigins string
}

// Load reads the full configuration from the environment.
func Load() *Config {
	return &Config{
		Server:   loadServerConfig(),
		Redis:    loadRedisConfig(),
		Database: loadDatabaseConfig(),
		Taskq:    loadTaskqConfig(),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnvInt("PORT", 8080),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}
