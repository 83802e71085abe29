package domain

import (
	"time"

	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
)

// BetStatus is the lifecycle state of one crash bet.
type BetStatus string

const (
	BetActive    BetStatus = "active"
	BetCashedOut BetStatus = "cashed_out"
	BetLost      BetStatus = "lost"
)

// CrashBet is one wager on one round. A user may hold up to two concurrent
// bets per round, distinguished by BetNumber. Terminal states are immutable.
type CrashBet struct {
	BetID             string    `json:"bet_id" gorm:"primaryKey;column:bet_id"`
	RoundID           string    `json:"round_id" gorm:"column:round_id;index;not null"`
	UserID            int64     `json:"user_id" gorm:"column:user_id;index;not null"`
	Username          string    `json:"username" gorm:"column:username"`
	BetNumber         int       `json:"bet_number" gorm:"column:bet_number;not null"`
	AmountCents       int64     `json:"amount_cents" gorm:"column:amount_cents;not null"`
	AutoCashout       float64   `json:"auto_cashout,omitempty" gorm:"column:auto_cashout"` // 0 means none
	Status            BetStatus `json:"status" gorm:"column:status;not null"`
	CashoutMultiplier float64   `json:"cashout_multiplier,omitempty" gorm:"column:cashout_multiplier"`
	ProfitCents       int64     `json:"profit_cents" gorm:"column:profit_cents"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName sets the table name for gorm.
func (CrashBet) TableName() string { return "crash_bets" }

// NewBetID generates a unique, time-sortable bet ID.
func NewBetID() string {
	return walletdomain.NewTransactionID()
}

// Settled reports whether the bet is in a terminal state.
func (b *CrashBet) Settled() bool {
	return b.Status != BetActive
}
