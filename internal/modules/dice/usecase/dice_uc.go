// Package usecase implements the single-shot dice game: one request is one
// debit, one provably fair roll and, on a win, one credit.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/shopspring/decimal"
)

const (
	minTarget = 0.01
	maxTarget = 99.98
)

var ErrInvalidBet = errors.New("invalid bet")

// DiceUseCase plays stateless dice rounds against the ledger.
type DiceUseCase struct {
	wallet    service.WalletService
	houseEdge float64
}

// NewDiceUseCase creates the dice use case.
func NewDiceUseCase(wallet service.WalletService, houseEdge float64) *DiceUseCase {
	return &DiceUseCase{wallet: wallet, houseEdge: houseEdge}
}

// PlayResult carries the full outcome including the revealed seeds, so the
// roll is verifiable immediately.
type PlayResult struct {
	Roll            float64
	Target          float64
	IsOver          bool
	Win             bool
	Multiplier      float64
	PayoutCents     int64
	ServerSeed      string
	Hash            string
	ClientSeed      string
	NewBalanceCents int64
}

// Play debits the stake, rolls and credits the payout on a win. The bet is
// settled entirely within this call; there is no round state to rejoin.
func (uc *DiceUseCase) Play(ctx context.Context, userID int64, amountCents int64, target float64, isOver bool, clientSeed string) (*PlayResult, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}
	if target < minTarget || target > maxTarget {
		return nil, fmt.Errorf("%w: target outside [%.2f, %.2f]", ErrInvalidBet, minTarget, maxTarget)
	}

	pair, err := fairness.NewSeedPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	if clientSeed == "" {
		if clientSeed, err = fairness.NewClientSeed(); err != nil {
			return nil, fmt.Errorf("failed to generate client seed: %w", err)
		}
	}

	debit, err := uc.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      userID,
		Type:        "game_loss",
		AmountCents: amountCents,
		Description: "Dice bet",
	})
	if err != nil {
		return nil, err
	}

	roll := fairness.DiceRoll(pair.ServerSeed, clientSeed, 0)
	multiplier := fairness.DicePayoutMultiplier(target, isOver, uc.houseEdge)
	win := fairness.DiceWin(roll, target, isOver)

	result := &PlayResult{
		Roll:            roll,
		Target:          target,
		IsOver:          isOver,
		Win:             win,
		Multiplier:      multiplier,
		ServerSeed:      pair.ServerSeed,
		Hash:            pair.Hash,
		ClientSeed:      clientSeed,
		NewBalanceCents: debit.NewBalanceCents,
	}
	if !win {
		return result, nil
	}

	result.PayoutCents = money.MulMultiplier(amountCents, decimal.NewFromFloat(multiplier))
	credit, err := uc.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      userID,
		Type:        "game_win",
		AmountCents: result.PayoutCents,
		Description: fmt.Sprintf("Dice win @ %.4fx", multiplier),
		Metadata: map[string]interface{}{
			"roll":   roll,
			"target": target,
		},
	})
	if err != nil {
		// The stake is already taken; a failed credit must not be swallowed.
		logger.Error(ctx).Err(err).
			Int64("user_id", userID).
			Int64("payout_cents", result.PayoutCents).
			Msg("dice: payout credit failed")
		return nil, err
	}
	result.NewBalanceCents = credit.NewBalanceCents

	return result, nil
}
