package usecase

import (
	"context"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
)

// maybeScheduleHandLocked arms the auto-start timer when the table is
// waiting and at least two seats hold chips. Caller holds actor.mu.
func (uc *PokerUseCase) maybeScheduleHandLocked(actor *roomActor) {
	room := actor.room
	if room.Phase != domain.PhaseWaiting || actor.startTimer != nil {
		return
	}
	ready := 0
	for _, s := range room.Seats {
		if s.Chips > 0 {
			ready++
		}
	}
	if ready < 2 {
		return
	}
	actor.startTimer = time.AfterFunc(uc.cfg.HandStartDelay, func() {
		actor.mu.Lock()
		defer actor.mu.Unlock()
		actor.startTimer = nil
		uc.startHandLocked(context.Background(), actor)
	})
}

// startHandLocked deals a new hand: shuffles, advances the button, posts
// blinds and opens preflop action. Caller holds actor.mu.
func (uc *PokerUseCase) startHandLocked(ctx context.Context, actor *roomActor) {
	room := actor.room
	if room.Phase != domain.PhaseWaiting {
		return
	}

	deck, err := uc.newDeck()
	if err != nil {
		logger.Error(ctx).Err(err).Str("room_id", room.RoomID).Msg("poker: shuffle failed")
		return
	}

	dealt := 0
	for _, s := range room.Seats {
		s.Hand = nil
		s.Bet = 0
		s.Folded = false
		s.AllIn = false
		s.Acted = false
		if s.Chips > 0 {
			dealt++
		}
	}
	if dealt < 2 {
		return
	}

	room.HandCounter++
	room.Deck = deck
	room.Community = nil
	room.Pot = 0
	room.CurrentBet = 0

	for _, s := range room.Seats {
		if s.Chips > 0 {
			s.Hand = []domain.Card{deck.Draw(), deck.Draw()}
		}
	}

	room.DealerIndex = nextLiveIndex(room, room.DealerIndex)
	sb := nextLiveIndex(room, room.DealerIndex)
	bb := nextLiveIndex(room, sb)

	postBlind(room.Seats[sb], room.MinBet/2)
	postBlind(room.Seats[bb], room.MinBet)
	room.CurrentBet = room.MinBet

	room.Phase = domain.PhasePreflop
	room.CurrentIndex = nextActorIndex(room, bb)

	logger.Info(ctx).
		Str("room_id", room.RoomID).
		Int("hand", room.HandCounter).
		Int("players", dealt).
		Int("dealer", room.DealerIndex).
		Msg("poker: hand started")

	for _, s := range room.Seats {
		if s.InHand() {
			uc.gateway.SendToUser(s.UserID, RoomNamespace(room.RoomID), "hole_cards", map[string]interface{}{
				"cards": s.Hand,
				"hand":  room.HandCounter,
			})
		}
	}

	uc.broadcastStateLocked(room)
	if countCanAct(room) >= 2 {
		uc.scheduleTurnLocked(actor)
	} else {
		uc.runOutBoardLocked(ctx, actor)
	}
}

// postBlind moves up to amount from the seat's stack into its bet, going
// all-in when the stack is short.
func postBlind(seat *domain.Seat, amount int64) {
	if amount > seat.Chips {
		amount = seat.Chips
	}
	seat.Chips -= amount
	seat.Bet += amount
	if seat.Chips == 0 {
		seat.AllIn = true
	}
}

// nextLiveIndex returns the first seat after from still contending for the
// pot, cycling the table.
func nextLiveIndex(room *domain.Room, from int) int {
	n := len(room.Seats)
	for i := 1; i <= n; i++ {
		idx := ((from + i) % n + n) % n
		if room.Seats[idx].Live() {
			return idx
		}
	}
	return from
}

// nextActorIndex returns the first seat after from that still has a
// decision, or -1 when nobody does.
func nextActorIndex(room *domain.Room, from int) int {
	n := len(room.Seats)
	for i := 1; i <= n; i++ {
		idx := ((from + i) % n + n) % n
		if room.Seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

func countCanAct(room *domain.Room) int {
	count := 0
	for _, s := range room.Seats {
		if s.CanAct() {
			count++
		}
	}
	return count
}

// afterActionLocked drives the hand forward after any state change: early
// win by folds, street completion, or simply the next player's turn.
// Caller holds actor.mu.
func (uc *PokerUseCase) afterActionLocked(ctx context.Context, actor *roomActor) {
	room := actor.room

	if uc.maybeEndByFoldsLocked(ctx, actor) {
		return
	}

	if bettingRoundComplete(room) {
		uc.advanceStreetLocked(ctx, actor)
		return
	}

	room.CurrentIndex = nextActorIndex(room, room.CurrentIndex)
	uc.scheduleTurnLocked(actor)
	uc.broadcastStateLocked(room)
}

// bettingRoundComplete reports whether every seat with a decision has acted
// and matched the current bet.
func bettingRoundComplete(room *domain.Room) bool {
	for _, s := range room.Seats {
		if !s.CanAct() {
			continue
		}
		if !s.Acted || s.Bet != room.CurrentBet {
			return false
		}
	}
	return true
}

// maybeEndByFoldsLocked awards the pot immediately when a single live seat
// remains. Returns true when the hand ended. Caller holds actor.mu.
func (uc *PokerUseCase) maybeEndByFoldsLocked(ctx context.Context, actor *roomActor) bool {
	room := actor.room
	if room.Phase == domain.PhaseWaiting {
		return false
	}
	live := room.LiveSeats()
	if len(live) != 1 {
		return false
	}

	collectBets(room)
	winner := live[0]
	amount := room.Pot
	winner.Chips += amount
	room.Pot = 0

	logger.Info(ctx).
		Str("room_id", room.RoomID).
		Int64("user_id", winner.UserID).
		Int64("amount_cents", amount).
		Msg("poker: hand won by folds")

	uc.gateway.Broadcast(RoomNamespace(room.RoomID), "handEnded", map[string]interface{}{
		"winners": []map[string]interface{}{{
			"user_id":   winner.UserID,
			"username":  winner.Username,
			"amount":    money.Format(amount),
			"hand_name": "",
		}},
		"community_cards": room.Community,
	})

	uc.endHandLocked(actor)
	return true
}

// collectBets sweeps the street's bets into the pot.
func collectBets(room *domain.Room) {
	for _, s := range room.Seats {
		room.Pot += s.Bet
		s.Bet = 0
		s.Acted = false
	}
	room.CurrentBet = 0
}

// advanceStreetLocked moves to the next street, dealing community cards,
// and runs the board out when no further betting is possible.
// Caller holds actor.mu.
func (uc *PokerUseCase) advanceStreetLocked(ctx context.Context, actor *roomActor) {
	room := actor.room
	collectBets(room)

	switch room.Phase {
	case domain.PhasePreflop:
		room.Phase = domain.PhaseFlop
		room.Community = append(room.Community, room.Deck.Draw(), room.Deck.Draw(), room.Deck.Draw())
	case domain.PhaseFlop:
		room.Phase = domain.PhaseTurn
		room.Community = append(room.Community, room.Deck.Draw())
	case domain.PhaseTurn:
		room.Phase = domain.PhaseRiver
		room.Community = append(room.Community, room.Deck.Draw())
	case domain.PhaseRiver:
		uc.showdownLocked(ctx, actor)
		return
	default:
		return
	}

	if countCanAct(room) < 2 {
		uc.runOutBoardLocked(ctx, actor)
		return
	}

	room.CurrentIndex = nextActorIndex(room, room.DealerIndex)
	uc.scheduleTurnLocked(actor)
	uc.broadcastStateLocked(room)
}

// runOutBoardLocked deals the remaining streets with no betting (players
// are all-in) and resolves the showdown.
func (uc *PokerUseCase) runOutBoardLocked(ctx context.Context, actor *roomActor) {
	room := actor.room
	for len(room.Community) < 5 {
		room.Community = append(room.Community, room.Deck.Draw())
	}
	room.Phase = domain.PhaseRiver
	uc.broadcastStateLocked(room)
	uc.showdownLocked(ctx, actor)
}

// showdownLocked evaluates the live hands, splits the pot among the best
// and ends the hand. Ties split evenly; the odd cents go to the lowest
// seat index. Caller holds actor.mu.
func (uc *PokerUseCase) showdownLocked(ctx context.Context, actor *roomActor) {
	room := actor.room
	collectBets(room)
	room.Phase = domain.PhaseShowdown

	live := room.LiveSeats()
	if len(live) == 0 {
		uc.endHandLocked(actor)
		return
	}

	type contender struct {
		seat *domain.Seat
		rank domain.HandRank
	}
	contenders := make([]contender, 0, len(live))
	var best domain.HandRank
	for _, s := range live {
		cards := append(append([]domain.Card{}, s.Hand...), room.Community...)
		rank, err := domain.EvaluateHand(cards)
		if err != nil {
			logger.Error(ctx).Err(err).Str("room_id", room.RoomID).Msg("poker: evaluation failed")
			continue
		}
		contenders = append(contenders, contender{seat: s, rank: rank})
		if len(contenders) == 1 || rank.Beats(best) {
			best = rank
		}
	}
	if len(contenders) == 0 {
		uc.endHandLocked(actor)
		return
	}

	var winners []contender
	for _, c := range contenders {
		if c.rank.Equal(best) {
			winners = append(winners, c)
		}
	}

	pot := room.Pot
	room.Pot = 0
	share := pot / int64(len(winners))
	remainder := pot - share*int64(len(winners))

	winnerViews := make([]map[string]interface{}, 0, len(winners))
	for i, w := range winners {
		amount := share
		if i == 0 {
			amount += remainder
		}
		w.seat.Chips += amount
		winnerViews = append(winnerViews, map[string]interface{}{
			"user_id":   w.seat.UserID,
			"username":  w.seat.Username,
			"amount":    money.Format(amount),
			"hand_name": w.rank.Name,
		})
	}

	revealed := make([]map[string]interface{}, 0, len(contenders))
	for _, c := range contenders {
		revealed = append(revealed, map[string]interface{}{
			"user_id":   c.seat.UserID,
			"username":  c.seat.Username,
			"cards":     c.seat.Hand,
			"hand_name": c.rank.Name,
		})
	}

	logger.Info(ctx).
		Str("room_id", room.RoomID).
		Int("winners", len(winners)).
		Int64("pot_cents", pot).
		Str("hand_name", best.Name).
		Msg("poker: showdown")

	uc.gateway.Broadcast(RoomNamespace(room.RoomID), "handEnded", map[string]interface{}{
		"winners":         winnerViews,
		"hands":           revealed,
		"community_cards": room.Community,
	})

	uc.endHandLocked(actor)
}

// endHandLocked resets per-hand state, returns to waiting and arms the next
// auto-start. Caller holds actor.mu.
func (uc *PokerUseCase) endHandLocked(actor *roomActor) {
	room := actor.room

	actor.turnGen++
	if actor.turnTimer != nil {
		actor.turnTimer.Stop()
		actor.turnTimer = nil
	}

	for _, s := range room.Seats {
		s.Hand = nil
		s.Bet = 0
		s.Folded = false
		s.AllIn = false
		s.Acted = false
	}
	room.Phase = domain.PhaseWaiting
	room.Community = nil
	room.Pot = 0
	room.CurrentBet = 0
	room.CurrentIndex = -1

	uc.broadcastStateLocked(room)
	uc.maybeScheduleHandLocked(actor)
}

// scheduleTurnLocked arms the turn timeout for the current player. The
// generation counter invalidates stale timers. Caller holds actor.mu.
func (uc *PokerUseCase) scheduleTurnLocked(actor *roomActor) {
	actor.turnGen++
	gen := actor.turnGen
	if actor.turnTimer != nil {
		actor.turnTimer.Stop()
	}
	actor.turnTimer = time.AfterFunc(uc.cfg.TurnTimeout, func() {
		uc.onTurnTimeout(actor, gen)
	})
}

// onTurnTimeout auto-checks when legal, otherwise folds the timed-out seat.
func (uc *PokerUseCase) onTurnTimeout(actor *roomActor, gen int) {
	actor.mu.Lock()
	defer actor.mu.Unlock()

	if gen != actor.turnGen {
		return
	}
	room := actor.room
	switch room.Phase {
	case domain.PhasePreflop, domain.PhaseFlop, domain.PhaseTurn, domain.PhaseRiver:
	default:
		return
	}
	if room.CurrentIndex < 0 || room.CurrentIndex >= len(room.Seats) {
		return
	}
	seat := room.Seats[room.CurrentIndex]
	if !seat.CanAct() {
		return
	}

	ctx := context.Background()
	action := "fold"
	if seat.Bet == room.CurrentBet {
		action = "check"
	}
	if err := uc.applyActionLocked(room, seat, action, 0); err != nil {
		return
	}

	logger.Info(ctx).
		Str("room_id", room.RoomID).
		Int64("user_id", seat.UserID).
		Str("action", action).
		Msg("poker: turn timed out")

	uc.afterActionLocked(ctx, actor)
}
