package domain

import "context"

// RoundRepository persists rounds and bets for audit and history replay.
// The engine treats the store as write-behind: a store failure never stalls
// the tick loop.
type RoundRepository interface {
	CreateRound(ctx context.Context, round *CrashRound) error
	UpdateRound(ctx context.Context, round *CrashRound) error
	CreateBet(ctx context.Context, bet *CrashBet) error
	UpdateBet(ctx context.Context, bet *CrashBet) error
	// RecentRounds returns the latest crashed rounds, newest first.
	RecentRounds(ctx context.Context, limit int) ([]*CrashRound, error)
}
