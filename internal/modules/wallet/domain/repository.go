package domain

import (
	"context"
	"time"
)

// LedgerRepository persists balance mutations. Implementations must write the
// user row and the transaction row in one atomic unit and populate
// tx.BalanceAfterCents before returning.
type LedgerRepository interface {
	// ApplyTransaction applies tx to the user's balance. The direction is
	// taken from tx.Type. Returns the new balance in cents.
	ApplyTransaction(ctx context.Context, tx *Transaction) (int64, error)
	// ApplyBonus applies a bonus transaction and stamps the user's
	// last_bonus_claim in the same atomic unit.
	ApplyBonus(ctx context.Context, tx *Transaction, claimedAt time.Time) (int64, error)
	// GetBalance returns the user's current balance in cents.
	GetBalance(ctx context.Context, userID int64) (int64, error)
	// GetLastBonusClaim returns the time of the user's last bonus claim,
	// or nil if never claimed.
	GetLastBonusClaim(ctx context.Context, userID int64) (*time.Time, error)
	// ListTransactions returns the user's transactions, newest first.
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*Transaction, error)
}
