package config

import "time"

// GatewayConfig configures the WebSocket gateway.
type GatewayConfig struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

// LoadGatewayConfig loads configuration for the gateway.
func LoadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Server: ServerConfig{
			Port: getEnv("GATEWAY_SERVER_PORT", "8081"),
			Name: "gateway-service",
		},
		WebSocket: WebSocketConfig{
			PingInterval:   54 * time.Second,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 4096,
		},
	}
}
