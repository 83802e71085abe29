// Package usecase routes client envelopes to the game modules and manages
// room membership, including the snapshot sent on every join.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	aviatormachine "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/machine"
	coinflipmachine "github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/machine"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/domain"
	pokeruc "github.com/Destroyer690420/stakex-sub001/internal/modules/poker/usecase"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// AviatorService is the gateway's view of the crash game.
type AviatorService interface {
	Snapshot() aviatormachine.Snapshot
	PlaceBet(ctx context.Context, userID int64, username string, amount float64, betNumber int, autoCashout float64)
	CashOut(ctx context.Context, userID int64, betNumber int, clientMultiplier float64)
}

// CoinflipService is the gateway's view of the coinflip game.
type CoinflipService interface {
	Snapshot() coinflipmachine.Snapshot
	PlaceBet(ctx context.Context, userID int64, username string, amount float64, side string)
	Chat(userID int64, username, message string)
}

// PokerService is the gateway's view of the poker tables.
type PokerService interface {
	JoinRoom(ctx context.Context, userID int64, username, roomID string, buyInCents int64) error
	LeaveRoom(ctx context.Context, userID int64, roomID string) error
	HandleAction(ctx context.Context, userID int64, roomID, action string, amountCents int64) error
	Snapshot(roomID string, viewerID int64) (map[string]interface{}, error)
	Chat(roomID string, username, message string)
}

// GatewayUseCase dispatches client messages onto the game services.
type GatewayUseCase struct {
	roster   domain.Roster
	sender   service.GatewayService
	aviator  AviatorService
	coinflip CoinflipService
	poker    PokerService
}

// NewGatewayUseCase creates a new gateway use case.
func NewGatewayUseCase(roster domain.Roster, sender service.GatewayService, aviator AviatorService, coinflip CoinflipService, poker PokerService) *GatewayUseCase {
	return &GatewayUseCase{
		roster:   roster,
		sender:   sender,
		aviator:  aviator,
		coinflip: coinflip,
		poker:    poker,
	}
}

// RequestEnvelope defines the standard request structure
type RequestEnvelope struct {
	Game    string          `json:"game"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// HandleMessage decodes the envelope and forwards to the game module.
func (uc *GatewayUseCase) HandleMessage(ctx context.Context, userID int64, username string, message []byte) error {
	var req RequestEnvelope
	if err := json.Unmarshal(message, &req); err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	if req.Game == "" || req.Command == "" {
		return fmt.Errorf("missing game or command")
	}

	switch req.Game {
	case "aviator":
		return uc.handleAviator(ctx, userID, username, req.Command, req.Data)
	case "coinflip":
		return uc.handleCoinflip(ctx, userID, username, req.Command, req.Data)
	case "poker":
		return uc.handlePoker(ctx, userID, username, req.Command, req.Data)
	default:
		return fmt.Errorf("unknown game: %s", req.Game)
	}
}

// HandleDisconnect folds out any poker seats the dropped connection held.
// Aviator bets deliberately survive a disconnect.
func (uc *GatewayUseCase) HandleDisconnect(userID int64, rooms []string) {
	ctx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
	for _, room := range rooms {
		roomID, ok := strings.CutPrefix(room, "poker/")
		if !ok {
			continue
		}
		if err := uc.poker.LeaveRoom(ctx, userID, roomID); err != nil {
			logger.Warn(ctx).Err(err).
				Int64("user_id", userID).
				Str("room_id", roomID).
				Msg("gateway: cash-out on disconnect failed")
		}
	}
}

func (uc *GatewayUseCase) handleAviator(ctx context.Context, userID int64, username, command string, data []byte) error {
	switch command {
	case "join", "join_aviator":
		uc.roster.Join(userID, aviatormachine.Room)
		uc.sender.SendToUser(userID, aviatormachine.Room, "snapshot", uc.aviator.Snapshot())
		return nil

	case "leave", "leave_aviator":
		uc.roster.Leave(userID, aviatormachine.Room)
		return nil

	case "place_bet":
		var payload struct {
			Amount      float64 `json:"amount"`
			BetNumber   int     `json:"betNumber"`
			AutoCashout float64 `json:"autoCashout"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid place_bet payload: %w", err)
		}
		uc.aviator.PlaceBet(ctx, userID, username, payload.Amount, payload.BetNumber, payload.AutoCashout)
		return nil

	case "cash_out":
		var payload struct {
			BetNumber        int     `json:"betNumber"`
			ClientMultiplier float64 `json:"clientMultiplier"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid cash_out payload: %w", err)
		}
		uc.aviator.CashOut(ctx, userID, payload.BetNumber, payload.ClientMultiplier)
		return nil

	default:
		return fmt.Errorf("unknown command for aviator: %s", command)
	}
}

func (uc *GatewayUseCase) handleCoinflip(ctx context.Context, userID int64, username, command string, data []byte) error {
	switch command {
	case "join", "join_coinflip":
		uc.roster.Join(userID, coinflipmachine.Room)
		uc.sender.SendToUser(userID, coinflipmachine.Room, "snapshot", uc.coinflip.Snapshot())
		return nil

	case "leave", "leave_coinflip":
		uc.roster.Leave(userID, coinflipmachine.Room)
		return nil

	case "placeBet":
		var payload struct {
			Amount float64 `json:"amount"`
			Side   string  `json:"side"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid placeBet payload: %w", err)
		}
		uc.coinflip.PlaceBet(ctx, userID, username, payload.Amount, payload.Side)
		return nil

	case "chatMessage":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid chatMessage payload: %w", err)
		}
		uc.coinflip.Chat(userID, username, payload.Message)
		return nil

	default:
		return fmt.Errorf("unknown command for coinflip: %s", command)
	}
}

func (uc *GatewayUseCase) handlePoker(ctx context.Context, userID int64, username, command string, data []byte) error {
	switch command {
	case "joinRoom":
		var payload struct {
			RoomID      string  `json:"roomId"`
			BuyInAmount float64 `json:"buyInAmount"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid joinRoom payload: %w", err)
		}
		if payload.RoomID == "" {
			return fmt.Errorf("missing roomId")
		}

		room := pokeruc.RoomNamespace(payload.RoomID)
		if err := uc.poker.JoinRoom(ctx, userID, username, payload.RoomID, money.ToCentsFloat(payload.BuyInAmount)); err != nil {
			logger.Warn(ctx).Err(err).
				Int64("user_id", userID).
				Str("room_id", payload.RoomID).
				Msg("gateway: joinRoom rejected")
			uc.sender.SendToUser(userID, room, "error", map[string]interface{}{
				"error": pokeruc.UserMessage(err),
			})
			return nil
		}

		// Subscribe after the seat exists so the snapshot and the first
		// broadcast agree on membership.
		uc.roster.Join(userID, room)
		if snap, err := uc.poker.Snapshot(payload.RoomID, userID); err == nil {
			uc.sender.SendToUser(userID, room, "snapshot", snap)
		}
		return nil

	case "leaveRoom":
		var payload struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid leaveRoom payload: %w", err)
		}
		room := pokeruc.RoomNamespace(payload.RoomID)
		if err := uc.poker.LeaveRoom(ctx, userID, payload.RoomID); err != nil {
			uc.sender.SendToUser(userID, room, "error", map[string]interface{}{
				"error": pokeruc.UserMessage(err),
			})
			return nil
		}
		uc.roster.Leave(userID, room)
		return nil

	case "playerAction":
		var payload struct {
			RoomID string  `json:"roomId"`
			Action string  `json:"action"`
			Amount float64 `json:"amount"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid playerAction payload: %w", err)
		}
		room := pokeruc.RoomNamespace(payload.RoomID)
		if err := uc.poker.HandleAction(ctx, userID, payload.RoomID, payload.Action, money.ToCentsFloat(payload.Amount)); err != nil {
			logger.Warn(ctx).Err(err).
				Int64("user_id", userID).
				Str("room_id", payload.RoomID).
				Str("action", payload.Action).
				Msg("gateway: playerAction rejected")
			uc.sender.SendToUser(userID, room, "error", map[string]interface{}{
				"error": pokeruc.UserMessage(err),
			})
		}
		return nil

	case "chatMessage":
		var payload struct {
			RoomID  string `json:"roomId"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid chatMessage payload: %w", err)
		}
		uc.poker.Chat(payload.RoomID, username, payload.Message)
		return nil

	default:
		return fmt.Errorf("unknown command for poker: %s", command)
	}
}
