// Package usecase implements the turn-based poker room engine: seating,
// blinds, street progression, action validation and showdown.
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// RoomNamespace returns the broadcast room for a table.
func RoomNamespace(roomID string) string {
	return "poker/" + roomID
}

// roomActor owns one table. All mutation happens under mu; timers re-enter
// through the actor with a generation guard so a stale timer never fires
// into a newer turn.
type roomActor struct {
	mu       sync.Mutex
	room     *domain.Room
	sessions map[int64]*domain.GameSession

	turnGen    int
	turnTimer  *time.Timer
	startTimer *time.Timer
}

// PokerUseCase manages all poker tables.
type PokerUseCase struct {
	cfg      config.PokerConfig
	wallet   service.WalletService
	gateway  service.GatewayService
	sessions domain.SessionRepository

	// newDeck is swappable so tests can deal a known board
	newDeck func() (*domain.Deck, error)

	mu    sync.RWMutex
	rooms map[string]*roomActor
}

// NewPokerUseCase creates the poker use case. sessions may be nil in tests.
func NewPokerUseCase(cfg config.PokerConfig, wallet service.WalletService, gateway service.GatewayService, sessions domain.SessionRepository) *PokerUseCase {
	return &PokerUseCase{
		cfg:      cfg,
		wallet:   wallet,
		gateway:  gateway,
		sessions: sessions,
		newDeck:  domain.NewDeck,
		rooms:    make(map[string]*roomActor),
	}
}

// Stop cancels every pending table timer. Used on shutdown.
func (uc *PokerUseCase) Stop() {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	for _, actor := range uc.rooms {
		actor.mu.Lock()
		if actor.turnTimer != nil {
			actor.turnTimer.Stop()
		}
		if actor.startTimer != nil {
			actor.startTimer.Stop()
		}
		actor.turnGen++
		actor.mu.Unlock()
	}
}

func (uc *PokerUseCase) getOrCreateRoom(roomID string) *roomActor {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if actor, ok := uc.rooms[roomID]; ok {
		return actor
	}
	actor := &roomActor{
		room: &domain.Room{
			RoomID:      roomID,
			MinBet:      uc.cfg.DefaultMinBet,
			MaxPlayers:  uc.cfg.MaxPlayers,
			DealerIndex: -1,
			Phase:       domain.PhaseWaiting,
		},
		sessions: make(map[int64]*domain.GameSession),
	}
	uc.rooms[roomID] = actor
	return actor
}

func (uc *PokerUseCase) getRoom(roomID string) (*roomActor, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	actor, ok := uc.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return actor, nil
}

// JoinRoom seats a player with the given buy-in. The buy-in is debited
// before the seat exists; a failed debit leaves no seat behind. A seat added
// mid-hand waits for the next deal.
func (uc *PokerUseCase) JoinRoom(ctx context.Context, userID int64, username, roomID string, buyInCents int64) error {
	if buyInCents < uc.cfg.DefaultMinBet*10 {
		return domain.ErrInvalidBuyIn
	}
	actor := uc.getOrCreateRoom(roomID)

	actor.mu.Lock()
	defer actor.mu.Unlock()

	room := actor.room
	if room.SeatOf(userID) != nil {
		return domain.ErrAlreadySeated
	}
	if len(room.Seats) >= room.MaxPlayers {
		return domain.ErrRoomFull
	}

	if _, err := uc.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      userID,
		Type:        string(walletdomain.TypeGameLoss),
		AmountCents: buyInCents,
		Description: "Buy-in",
		Metadata: map[string]interface{}{
			"game":    "poker",
			"room_id": roomID,
		},
	}); err != nil {
		return err
	}

	seat := &domain.Seat{
		UserID:    userID,
		Username:  username,
		SeatIndex: len(room.Seats),
		Chips:     buyInCents,
	}
	room.Seats = append(room.Seats, seat)

	session := &domain.GameSession{
		SessionID:  domain.NewSessionID(),
		RoomID:     roomID,
		UserID:     userID,
		BuyInCents: buyInCents,
	}
	actor.sessions[userID] = session
	if uc.sessions != nil {
		if err := uc.sessions.Create(ctx, session); err != nil {
			logger.Warn(ctx).Err(err).Str("room_id", roomID).Msg("poker: persist session failed")
		}
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Str("room_id", roomID).
		Int64("buy_in_cents", buyInCents).
		Msg("poker: player seated")

	uc.broadcastStateLocked(room)
	uc.maybeScheduleHandLocked(actor)
	return nil
}

// LeaveRoom folds the player's current hand, cashes out the remaining chips
// and removes the seat. Also used on disconnect.
func (uc *PokerUseCase) LeaveRoom(ctx context.Context, userID int64, roomID string) error {
	actor, err := uc.getRoom(roomID)
	if err != nil {
		return err
	}

	actor.mu.Lock()
	defer actor.mu.Unlock()

	room := actor.room
	seat := room.SeatOf(userID)
	if seat == nil {
		return domain.ErrNotSeated
	}

	wasTurn := room.Phase != domain.PhaseWaiting && room.CurrentIndex == seat.SeatIndex

	// the live bet is forfeit to the pot; only free chips cash out
	room.Pot += seat.Bet
	seat.Bet = 0
	seat.Folded = true
	chips := seat.Chips
	seat.Chips = 0

	// pin the successor before indexes shift
	var nextSeat *domain.Seat
	if wasTurn {
		if idx := nextActorIndex(room, seat.SeatIndex); idx >= 0 {
			nextSeat = room.Seats[idx]
		}
	}

	uc.removeSeatLocked(room, seat)

	if chips > 0 {
		if _, err := uc.wallet.ProcessTransaction(ctx, service.TransactionRequest{
			UserID:      userID,
			Type:        string(walletdomain.TypeGameWin),
			AmountCents: chips,
			Description: "Cash-out",
			Metadata: map[string]interface{}{
				"game":    "poker",
				"room_id": roomID,
			},
		}); err != nil {
			logger.Error(ctx).Err(err).
				Int64("user_id", userID).
				Str("room_id", roomID).
				Int64("chips_cents", chips).
				Msg("poker: cash-out failed")
		}
	}

	if session, ok := actor.sessions[userID]; ok {
		delete(actor.sessions, userID)
		if uc.sessions != nil {
			now := time.Now()
			if err := uc.sessions.End(ctx, session.SessionID, chips, now); err != nil {
				logger.Warn(ctx).Err(err).Str("room_id", roomID).Msg("poker: persist session failed")
			}
		}
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Str("room_id", roomID).
		Int64("cash_out_cents", chips).
		Msg("poker: player left")

	if room.Phase != domain.PhaseWaiting {
		if uc.maybeEndByFoldsLocked(ctx, actor) {
			return nil
		}
		if bettingRoundComplete(room) {
			uc.advanceStreetLocked(ctx, actor)
			return nil
		}
		if wasTurn && nextSeat != nil {
			room.CurrentIndex = nextSeat.SeatIndex
			uc.scheduleTurnLocked(actor)
		}
	}
	uc.broadcastStateLocked(room)
	return nil
}

// removeSeatLocked drops the seat and reindexes the table, keeping dealer
// and turn pointers on the seats they referred to.
func (uc *PokerUseCase) removeSeatLocked(room *domain.Room, seat *domain.Seat) {
	idx := seat.SeatIndex
	room.Seats = append(room.Seats[:idx], room.Seats[idx+1:]...)
	for i, s := range room.Seats {
		s.SeatIndex = i
	}
	if room.DealerIndex >= idx && room.DealerIndex > 0 {
		room.DealerIndex--
	}
	if room.CurrentIndex >= idx && room.CurrentIndex > 0 {
		room.CurrentIndex--
	}
}

// HandleAction applies one player action: fold, check, call, raise (amount
// is the total new bet) or all_in.
func (uc *PokerUseCase) HandleAction(ctx context.Context, userID int64, roomID, action string, amountCents int64) error {
	actor, err := uc.getRoom(roomID)
	if err != nil {
		return err
	}

	actor.mu.Lock()
	defer actor.mu.Unlock()

	room := actor.room
	seat := room.SeatOf(userID)
	if seat == nil {
		return domain.ErrNotSeated
	}
	if room.Phase == domain.PhaseWaiting || room.Phase == domain.PhaseShowdown {
		return domain.ErrInvalidAction
	}
	if room.CurrentIndex != seat.SeatIndex || !seat.CanAct() {
		return domain.ErrNotYourTurn
	}

	if err := uc.applyActionLocked(room, seat, action, amountCents); err != nil {
		return err
	}

	logger.Debug(ctx).
		Int64("user_id", userID).
		Str("room_id", roomID).
		Str("action", action).
		Int64("amount_cents", amountCents).
		Msg("poker: action")

	uc.afterActionLocked(ctx, actor)
	return nil
}

// applyActionLocked validates and applies the action to the seat.
func (uc *PokerUseCase) applyActionLocked(room *domain.Room, seat *domain.Seat, action string, amountCents int64) error {
	switch action {
	case "fold":
		seat.Folded = true
		seat.Acted = true

	case "check":
		if seat.Bet != room.CurrentBet {
			return domain.ErrInvalidAction
		}
		seat.Acted = true

	case "call":
		owed := room.CurrentBet - seat.Bet
		if owed <= 0 {
			return domain.ErrInvalidAction
		}
		pay := owed
		if pay > seat.Chips {
			pay = seat.Chips
		}
		seat.Chips -= pay
		seat.Bet += pay
		if seat.Chips == 0 {
			seat.AllIn = true
		}
		seat.Acted = true

	case "raise":
		minTotal := room.CurrentBet * 2
		if alt := room.CurrentBet + room.MinBet; alt > minTotal {
			minTotal = alt
		}
		if amountCents < minTotal {
			return domain.ErrInvalidAction
		}
		need := amountCents - seat.Bet
		if need <= 0 || need > seat.Chips {
			return domain.ErrInvalidAction
		}
		seat.Chips -= need
		seat.Bet = amountCents
		if seat.Chips == 0 {
			seat.AllIn = true
		}
		room.CurrentBet = amountCents
		uc.reopenActionLocked(room, seat)

	case "all_in":
		if seat.Chips <= 0 {
			return domain.ErrInvalidAction
		}
		seat.Bet += seat.Chips
		seat.Chips = 0
		seat.AllIn = true
		if seat.Bet > room.CurrentBet {
			room.CurrentBet = seat.Bet
			uc.reopenActionLocked(room, seat)
		} else {
			seat.Acted = true
		}

	default:
		return domain.ErrInvalidAction
	}
	return nil
}

// reopenActionLocked marks the aggressor acted and gives everyone else a
// fresh decision against the new bet.
func (uc *PokerUseCase) reopenActionLocked(room *domain.Room, aggressor *domain.Seat) {
	for _, s := range room.Seats {
		s.Acted = s == aggressor
	}
}

// Snapshot returns the public room state for snapshot-on-join, plus the
// viewer's own hole cards if seated in the current hand.
func (uc *PokerUseCase) Snapshot(roomID string, viewerID int64) (map[string]interface{}, error) {
	actor, err := uc.getRoom(roomID)
	if err != nil {
		return nil, err
	}
	actor.mu.Lock()
	defer actor.mu.Unlock()

	state := uc.publicStateLocked(actor.room)
	if seat := actor.room.SeatOf(viewerID); seat != nil && seat.InHand() {
		state["hole_cards"] = seat.Hand
	}
	return state, nil
}

// Chat relays a table chat message.
func (uc *PokerUseCase) Chat(roomID string, username, message string) {
	if message == "" || len(message) > 500 {
		return
	}
	uc.gateway.Broadcast(RoomNamespace(roomID), "chatMessage", map[string]interface{}{
		"username": username,
		"message":  message,
	})
}

// publicStateLocked builds the gameState payload. Hole cards are excluded;
// they travel only on private channels or in the showdown reveal.
func (uc *PokerUseCase) publicStateLocked(room *domain.Room) map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(room.Seats))
	for _, s := range room.Seats {
		players = append(players, map[string]interface{}{
			"user_id":    s.UserID,
			"username":   s.Username,
			"seat_index": s.SeatIndex,
			"chips":      money.Format(s.Chips),
			"bet":        money.Format(s.Bet),
			"folded":     s.Folded,
			"all_in":     s.AllIn,
			"in_hand":    s.InHand(),
		})
	}
	return map[string]interface{}{
		"room_id":         room.RoomID,
		"phase":           string(room.Phase),
		"players":         players,
		"community_cards": room.Community,
		"pot":             money.Format(room.Pot),
		"current_bet":     money.Format(room.CurrentBet),
		"turn_index":      room.CurrentIndex,
		"dealer_index":    room.DealerIndex,
		"min_bet":         money.Format(room.MinBet),
	}
}

func (uc *PokerUseCase) broadcastStateLocked(room *domain.Room) {
	uc.gateway.Broadcast(RoomNamespace(room.RoomID), "gameState", uc.publicStateLocked(room))
}

// UserMessage maps poker errors onto stable client-facing strings.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, walletdomain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, domain.ErrRoomFull):
		return "room is full"
	case errors.Is(err, domain.ErrAlreadySeated):
		return "already seated"
	case errors.Is(err, domain.ErrNotSeated):
		return "not seated"
	case errors.Is(err, domain.ErrNotYourTurn):
		return "not your turn"
	case errors.Is(err, domain.ErrInvalidAction):
		return "invalid action"
	case errors.Is(err, domain.ErrInvalidBuyIn):
		return "buy-in too small"
	default:
		return "internal error"
	}
}
