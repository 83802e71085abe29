package domain

import (
	"context"
	"errors"
	"time"

	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
)

// Phase is the stage of the current hand.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadySeated = errors.New("already seated in this room")
	ErrNotSeated     = errors.New("not seated in this room")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidBuyIn  = errors.New("invalid buy-in amount")
)

// Seat is one player's state in a room. Chip amounts are cents. Hand is nil
// for a seat waiting for the next deal.
type Seat struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	SeatIndex int    `json:"seat_index"`
	Chips     int64  `json:"chips"`
	Hand      []Card `json:"-"`
	Bet       int64  `json:"bet"`
	Folded    bool   `json:"folded"`
	AllIn     bool   `json:"all_in"`
	Acted     bool   `json:"-"`
}

// InHand reports whether the seat was dealt into the current hand.
func (s *Seat) InHand() bool {
	return len(s.Hand) == 2
}

// Live reports whether the seat can still win the current hand.
func (s *Seat) Live() bool {
	return s.InHand() && !s.Folded
}

// CanAct reports whether the seat has a decision to make.
func (s *Seat) CanAct() bool {
	return s.Live() && !s.AllIn
}

// Room is one poker table. All mutation happens under the owning actor's
// lock; the invariant sum(chips) + sum(bets) + pot stays constant between
// wallet operations.
type Room struct {
	RoomID       string
	MinBet       int64 // big blind, cents
	MaxPlayers   int
	DealerIndex  int
	CurrentIndex int
	Phase        Phase
	Deck         *Deck
	Community    []Card
	Pot          int64
	CurrentBet   int64
	Seats        []*Seat
	HandCounter  int
}

// SeatOf returns the seat held by userID, or nil.
func (r *Room) SeatOf(userID int64) *Seat {
	for _, s := range r.Seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// LiveSeats returns the seats still contending for the pot.
func (r *Room) LiveSeats() []*Seat {
	var out []*Seat
	for _, s := range r.Seats {
		if s.Live() {
			out = append(out, s)
		}
	}
	return out
}

// TotalChips sums chips, live bets and the pot; constant through a hand.
func (r *Room) TotalChips() int64 {
	total := r.Pot
	for _, s := range r.Seats {
		total += s.Chips + s.Bet
	}
	return total
}

// GameSession is the audit row for one player's stay at a table.
type GameSession struct {
	SessionID    string     `json:"session_id" gorm:"primaryKey;column:session_id"`
	RoomID       string     `json:"room_id" gorm:"column:room_id;index;not null"`
	UserID       int64      `json:"user_id" gorm:"column:user_id;index;not null"`
	BuyInCents   int64      `json:"buy_in_cents" gorm:"column:buy_in_cents;not null"`
	CashOutCents int64      `json:"cash_out_cents" gorm:"column:cash_out_cents"`
	StartedAt    time.Time  `json:"started_at" gorm:"column:started_at;autoCreateTime"`
	EndedAt      *time.Time `json:"ended_at,omitempty" gorm:"column:ended_at"`
}

// TableName sets the table name for gorm.
func (GameSession) TableName() string { return "poker_sessions" }

// NewSessionID generates a unique session identifier.
func NewSessionID() string {
	return walletdomain.NewTransactionID()
}

// SessionRepository persists table sessions for audit.
type SessionRepository interface {
	Create(ctx context.Context, session *GameSession) error
	End(ctx context.Context, sessionID string, cashOutCents int64, endedAt time.Time) error
}
