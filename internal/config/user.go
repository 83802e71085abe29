package config

import "time"

// UserConfig configures the user module (auth, sessions, wallet REST API).
type UserConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
}

// LoadUserConfig loads configuration for the user module.
func LoadUserConfig() UserConfig {
	return UserConfig{
		Server: ServerConfig{
			Port:     getEnv("USER_HTTP_PORT", "8082"),
			Name:     "user-service",
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "casino_user"),
			Password: getEnv("DB_PASSWORD", "casino_pass"),
			Name:     getEnv("DB_NAME", "casino_db"),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", "dev-secret-key"),
			Duration: 24 * time.Hour,
		},
	}
}
