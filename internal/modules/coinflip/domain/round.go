// Package domain defines the coinflip game's models.
package domain

import (
	"errors"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	"github.com/google/uuid"
)

// Status is the phase of the global coinflip room.
type Status string

const (
	StatusBetting  Status = "betting"
	StatusFlipping Status = "flipping"
	StatusResult   Status = "result"
)

var (
	// ErrPhaseViolation is returned for bets outside the betting window.
	ErrPhaseViolation = errors.New("betting is closed")
	// ErrInvalidBet is returned for bad amounts or sides.
	ErrInvalidBet = errors.New("invalid bet")
)

// Bet is one pooled wager. The debit happens at placement; winners are paid
// pro-rata from the pot at settlement.
type Bet struct {
	UserID      int64         `json:"user_id"`
	Username    string        `json:"username"`
	AmountCents int64         `json:"amount_cents"`
	Side        fairness.Side `json:"side"`
}

// Round is one betting -> flipping -> result cycle of the global room.
type Round struct {
	RoundID    string        `json:"round_id"`
	Status     Status        `json:"status"`
	Outcome    fairness.Side `json:"outcome,omitempty"`
	Bets       []*Bet        `json:"bets"`
	PotCents   int64         `json:"pot_cents"`
	Hash       string        `json:"hash"`
	ServerSeed string        `json:"server_seed,omitempty"`
	ClientSeed string        `json:"client_seed"`
}

// NewRoundID generates a round identifier.
func NewRoundID() string {
	return uuid.NewString()
}

// HistoryEntry is one settled round in the public history feed.
type HistoryEntry struct {
	RoundID    string        `json:"round_id"`
	Outcome    fairness.Side `json:"outcome"`
	Hash       string        `json:"hash"`
	ServerSeed string        `json:"server_seed"`
	PotCents   int64         `json:"pot_cents"`
}

// Winner is one payout line in the round result broadcast.
type Winner struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Amount      string `json:"amount"`
	Payout      string `json:"payout"`
	PayoutCents int64  `json:"-"`
}
