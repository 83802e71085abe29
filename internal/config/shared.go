package config

import "time"

// --- Shared Configs ---

type ServerConfig struct {
	Port     string
	Name     string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type JWTConfig struct {
	Secret   string
	Duration time.Duration
}
