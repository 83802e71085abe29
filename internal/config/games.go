package config

import "time"

// AviatorConfig configures the tick-driven crash round engine.
type AviatorConfig struct {
	TickInterval    time.Duration
	WaitingDuration time.Duration
	InterRoundDelay time.Duration
	HouseEdge       float64
	MaxMultiplier   float64
	GrowthRate      float64 // exponent coefficient per elapsed millisecond
	HistorySize     int
	MaxBetsPerUser  int
}

// LoadAviatorConfig loads configuration for the aviator engine.
func LoadAviatorConfig() AviatorConfig {
	return AviatorConfig{
		TickInterval:    100 * time.Millisecond,
		WaitingDuration: 5 * time.Second,
		InterRoundDelay: 3 * time.Second,
		HouseEdge:       getEnvFloat("AVIATOR_HOUSE_EDGE", 0.04),
		MaxMultiplier:   1000.0,
		GrowthRate:      getEnvFloat("AVIATOR_GROWTH_RATE", 0.00006),
		HistorySize:     getEnvInt("AVIATOR_HISTORY_SIZE", 25),
		MaxBetsPerUser:  2,
	}
}

// CoinflipConfig configures the timer-driven pooled-bet engine.
type CoinflipConfig struct {
	BettingDuration  time.Duration
	FlippingDuration time.Duration
	ResultDuration   time.Duration
	HouseEdge        float64
	HistorySize      int
}

// LoadCoinflipConfig loads configuration for the coinflip engine.
func LoadCoinflipConfig() CoinflipConfig {
	return CoinflipConfig{
		BettingDuration:  15 * time.Second,
		FlippingDuration: 5 * time.Second,
		ResultDuration:   5 * time.Second,
		HouseEdge:        getEnvFloat("COINFLIP_HOUSE_EDGE", 0.05),
		HistorySize:      getEnvInt("COINFLIP_HISTORY_SIZE", 10),
	}
}

// PokerConfig configures the turn-based room engine.
type PokerConfig struct {
	TurnTimeout    time.Duration
	HandStartDelay time.Duration
	MaxPlayers     int
	DefaultMinBet  int64 // cents
}

// LoadPokerConfig loads configuration for the poker rooms.
func LoadPokerConfig() PokerConfig {
	return PokerConfig{
		TurnTimeout:    time.Duration(getEnvInt("POKER_TURN_TIMEOUT_SECONDS", 15)) * time.Second,
		HandStartDelay: 3 * time.Second,
		MaxPlayers:     getEnvInt("POKER_MAX_PLAYERS", 6),
		DefaultMinBet:  int64(getEnvInt("POKER_MIN_BET_CENTS", 100)),
	}
}
