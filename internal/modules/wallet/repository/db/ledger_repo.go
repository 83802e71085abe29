// Package db implements the ledger repository on gorm/Postgres.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	userdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/user/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository persists balances and the append-only transaction log.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ApplyTransaction updates the user's balance and appends the transaction
// row inside a single database transaction with a row lock on the user.
func (r *LedgerRepository) ApplyTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	return r.apply(ctx, tx, nil)
}

// ApplyBonus is ApplyTransaction plus stamping last_bonus_claim.
func (r *LedgerRepository) ApplyBonus(ctx context.Context, tx *domain.Transaction, claimedAt time.Time) (int64, error) {
	return r.apply(ctx, tx, &claimedAt)
}

func (r *LedgerRepository) apply(ctx context.Context, tx *domain.Transaction, bonusClaimedAt *time.Time) (int64, error) {
	var newBalance int64

	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var user userdomain.User
		if err := dbtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, tx.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		switch {
		case tx.Type.IsCredit():
			newBalance = user.CashCents + tx.AmountCents
		case tx.Type.IsDebit():
			if user.CashCents < tx.AmountCents {
				return domain.ErrInsufficientFunds
			}
			newBalance = user.CashCents - tx.AmountCents
		default:
			return domain.ErrInvalidAmount
		}

		updates := map[string]interface{}{"cash_cents": newBalance}
		if bonusClaimedAt != nil {
			updates["last_bonus_claim"] = *bonusClaimedAt
		}
		if err := dbtx.Model(&userdomain.User{}).
			Where("user_id = ?", tx.UserID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		tx.BalanceAfterCents = newBalance
		if err := dbtx.Create(tx).Error; err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetBalance returns the user's current balance in cents.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var user userdomain.User
	if err := r.db.WithContext(ctx).Select("cash_cents").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return user.CashCents, nil
}

// GetLastBonusClaim returns when the user last claimed the daily bonus.
func (r *LedgerRepository) GetLastBonusClaim(ctx context.Context, userID int64) (*time.Time, error) {
	var user userdomain.User
	if err := r.db.WithContext(ctx).Select("last_bonus_claim").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return user.LastBonusClaim, nil
}

// ListTransactions returns the user's transactions, newest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return txs, nil
}
