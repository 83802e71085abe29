// Package usecase implements the wallet ledger: atomic balance mutation with
// an append-only transaction log.
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// WalletUseCase serializes all mutations per user and delegates atomic
// persistence to the ledger repository. It implements service.WalletService.
type WalletUseCase struct {
	repo domain.LedgerRepository

	bonusAmountCents int64
	bonusCooldown    time.Duration

	// one mutex per user; entries are never removed, the set of active
	// users in one process is small
	locks sync.Map
}

// NewWalletUseCase creates a wallet use case.
func NewWalletUseCase(repo domain.LedgerRepository, bonusAmountCents int64, bonusCooldown time.Duration) *WalletUseCase {
	return &WalletUseCase{
		repo:             repo,
		bonusAmountCents: bonusAmountCents,
		bonusCooldown:    bonusCooldown,
	}
}

func (uc *WalletUseCase) userLock(userID int64) *sync.Mutex {
	v, _ := uc.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ProcessTransaction applies one ledger mutation. Credit types always
// succeed (given a valid user); debit types fail with ErrInsufficientFunds
// when the balance is too low. The user row and the transaction row are
// written in one atomic unit.
func (uc *WalletUseCase) ProcessTransaction(ctx context.Context, req service.TransactionRequest) (service.TransactionResult, error) {
	if req.AmountCents <= 0 {
		return service.TransactionResult{}, domain.ErrInvalidAmount
	}
	txType := domain.Type(req.Type)
	if !txType.Valid() {
		return service.TransactionResult{}, fmt.Errorf("unknown transaction type %q: %w", req.Type, domain.ErrInvalidAmount)
	}

	lock := uc.userLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	tx := domain.NewTransaction(req.UserID, txType, req.AmountCents, req.Description, req.Metadata)
	newBalance, err := uc.repo.ApplyTransaction(ctx, tx)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Int64("user_id", req.UserID).
			Str("type", req.Type).
			Int64("amount_cents", req.AmountCents).
			Msg("ledger transaction rejected")
		return service.TransactionResult{}, err
	}

	logger.Info(ctx).
		Int64("user_id", req.UserID).
		Str("type", req.Type).
		Int64("amount_cents", req.AmountCents).
		Int64("balance_after_cents", newBalance).
		Str("transaction_id", tx.TransactionID).
		Msg("ledger transaction applied")

	return service.TransactionResult{
		TransactionID:   tx.TransactionID,
		NewBalanceCents: newBalance,
	}, nil
}

// GetBalance returns the user's canonical balance.
func (uc *WalletUseCase) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return uc.repo.GetBalance(ctx, userID)
}

// ClaimDailyBonus applies the daily bonus if the cooldown has elapsed.
func (uc *WalletUseCase) ClaimDailyBonus(ctx context.Context, userID int64) (service.TransactionResult, error) {
	lock := uc.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	last, err := uc.repo.GetLastBonusClaim(ctx, userID)
	if err != nil {
		return service.TransactionResult{}, err
	}
	now := time.Now()
	if last != nil && now.Sub(*last) < uc.bonusCooldown {
		return service.TransactionResult{}, domain.ErrBonusNotReady
	}

	tx := domain.NewTransaction(userID, domain.TypeBonus, uc.bonusAmountCents, "Daily bonus", nil)
	newBalance, err := uc.repo.ApplyBonus(ctx, tx, now)
	if err != nil {
		return service.TransactionResult{}, err
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Int64("amount_cents", uc.bonusAmountCents).
		Msg("daily bonus claimed")

	return service.TransactionResult{
		TransactionID:   tx.TransactionID,
		NewBalanceCents: newBalance,
	}, nil
}

// ListTransactions returns a page of the user's ledger history, newest first.
func (uc *WalletUseCase) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return uc.repo.ListTransactions(ctx, userID, limit, offset)
}
