// Package config loads all service configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the single-process casino core.
type Config struct {
	User     UserConfig
	Gateway  GatewayConfig
	Aviator  AviatorConfig
	Coinflip CoinflipConfig
	Poker    PokerConfig
}

// Load loads the full configuration.
func Load() *Config {
	return &Config{
		User:     LoadUserConfig(),
		Gateway:  LoadGatewayConfig(),
		Aviator:  LoadAviatorConfig(),
		Coinflip: LoadCoinflipConfig(),
		Poker:    LoadPokerConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
