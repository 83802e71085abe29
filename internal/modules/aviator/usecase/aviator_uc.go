// Package usecase exposes the crash engine to the realtime gateway: it
// decodes player intents, invokes the engine and answers the caller on the
// private channel.
package usecase

import (
	"context"
	"errors"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/machine"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// AviatorUseCase adapts gateway commands onto the engine actor.
type AviatorUseCase struct {
	engine  *machine.Engine
	gateway service.GatewayService
}

// NewAviatorUseCase creates the aviator use case.
func NewAviatorUseCase(engine *machine.Engine, gateway service.GatewayService) *AviatorUseCase {
	return &AviatorUseCase{engine: engine, gateway: gateway}
}

// Snapshot returns the authoritative state for snapshot-on-join.
func (uc *AviatorUseCase) Snapshot() machine.Snapshot {
	return uc.engine.Snapshot()
}

// PlaceBet handles a place_bet command and answers with bet_result on the
// caller's private channel.
func (uc *AviatorUseCase) PlaceBet(ctx context.Context, userID int64, username string, amount float64, betNumber int, autoCashout float64) {
	amountCents := money.ToCentsFloat(amount)

	bet, newBalance, err := uc.engine.PlaceBet(ctx, userID, username, amountCents, betNumber, autoCashout)
	if err != nil {
		logger.Warn(ctx).Err(err).
			Int64("user_id", userID).
			Int("bet_number", betNumber).
			Msg("aviator: bet rejected")
		uc.gateway.SendToUser(userID, machine.Room, "bet_result", map[string]interface{}{
			"success":    false,
			"bet_number": betNumber,
			"error":      userMessage(err),
		})
		return
	}

	uc.gateway.SendToUser(userID, machine.Room, "bet_result", map[string]interface{}{
		"success":     true,
		"bet_id":      bet.BetID,
		"bet_number":  bet.BetNumber,
		"new_balance": money.Format(newBalance),
	})
}

// CashOut handles a cash_out command and answers with cashout_result on the
// caller's private channel.
func (uc *AviatorUseCase) CashOut(ctx context.Context, userID int64, betNumber int, clientMultiplier float64) {
	bet, newBalance, err := uc.engine.CashOut(ctx, userID, betNumber, clientMultiplier)
	if err != nil {
		logger.Warn(ctx).Err(err).
			Int64("user_id", userID).
			Int("bet_number", betNumber).
			Msg("aviator: cashout rejected")
		uc.gateway.SendToUser(userID, machine.Room, "cashout_result", map[string]interface{}{
			"success":    false,
			"bet_number": betNumber,
			"error":      userMessage(err),
		})
		return
	}

	uc.gateway.SendToUser(userID, machine.Room, "cashout_result", map[string]interface{}{
		"success":     true,
		"bet_id":      bet.BetID,
		"bet_number":  bet.BetNumber,
		"multiplier":  bet.CashoutMultiplier,
		"profit":      money.Format(bet.ProfitCents),
		"new_balance": money.Format(newBalance),
	})
}

// userMessage maps internal errors onto stable client-facing strings.
func userMessage(err error) string {
	switch {
	case errors.Is(err, walletdomain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrPhaseViolation):
		return "round is not accepting this action"
	case errors.Is(err, domain.ErrAlreadyCrashed):
		return "round already crashed"
	case errors.Is(err, domain.ErrAlreadySettled):
		return "bet already settled"
	case errors.Is(err, domain.ErrNoSuchBet):
		return "no such bet"
	case errors.Is(err, domain.ErrBetLimit):
		return "bet slot unavailable"
	case errors.Is(err, domain.ErrInvalidBet):
		return "invalid bet"
	default:
		return "internal error"
	}
}
