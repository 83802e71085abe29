// Package usecase exposes the coinflip engine to the realtime gateway.
package usecase

import (
	"context"
	"errors"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/machine"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// CoinflipUseCase adapts gateway commands onto the engine actor.
type CoinflipUseCase struct {
	engine  *machine.Engine
	gateway service.GatewayService
}

// NewCoinflipUseCase creates the coinflip use case.
func NewCoinflipUseCase(engine *machine.Engine, gateway service.GatewayService) *CoinflipUseCase {
	return &CoinflipUseCase{engine: engine, gateway: gateway}
}

// Snapshot returns the authoritative state for snapshot-on-join.
func (uc *CoinflipUseCase) Snapshot() machine.Snapshot {
	return uc.engine.Snapshot()
}

// PlaceBet handles a placeBet command and answers with betConfirmed on the
// caller's private channel.
func (uc *CoinflipUseCase) PlaceBet(ctx context.Context, userID int64, username string, amount float64, side string) {
	amountCents := money.ToCentsFloat(amount)

	newBalance, err := uc.engine.PlaceBet(ctx, userID, username, amountCents, fairness.Side(side))
	if err != nil {
		logger.Warn(ctx).Err(err).
			Int64("user_id", userID).
			Str("side", side).
			Msg("coinflip: bet rejected")
		uc.gateway.SendToUser(userID, machine.Room, "betConfirmed", map[string]interface{}{
			"success": false,
			"error":   userMessage(err),
		})
		return
	}

	uc.gateway.SendToUser(userID, machine.Room, "betConfirmed", map[string]interface{}{
		"success":     true,
		"amount":      money.Format(amountCents),
		"side":        side,
		"new_balance": money.Format(newBalance),
	})
}

// Chat relays a chat message to everyone in the room.
func (uc *CoinflipUseCase) Chat(userID int64, username, message string) {
	if message == "" || len(message) > 500 {
		return
	}
	uc.gateway.Broadcast(machine.Room, "chatMessage", map[string]interface{}{
		"username": username,
		"message":  message,
	})
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, walletdomain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrPhaseViolation):
		return "betting is closed"
	case errors.Is(err, domain.ErrInvalidBet):
		return "invalid bet"
	default:
		return "internal error"
	}
}
