package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableEvent struct {
	Room    string
	Command string
	UserID  int64
	Data    interface{}
}

type recordingGateway struct {
	mu     sync.Mutex
	events []tableEvent
}

func (g *recordingGateway) Broadcast(room, command string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, tableEvent{Room: room, Command: command, Data: data})
}

func (g *recordingGateway) SendToUser(userID int64, room, command string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, tableEvent{Room: room, Command: command, UserID: userID, Data: data})
}

func (g *recordingGateway) last(command string) (tableEvent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.events) - 1; i >= 0; i-- {
		if g.events[i].Command == command {
			return g.events[i], true
		}
	}
	return tableEvent{}, false
}

func testConfig() config.PokerConfig {
	return config.PokerConfig{
		TurnTimeout:    time.Hour, // tests drive actions explicitly
		HandStartDelay: time.Hour, // tests start hands explicitly
		MaxPlayers:     6,
		DefaultMinBet:  100, // $1.00 big blind
	}
}

func newTestUseCase(t *testing.T) (*PokerUseCase, *wallet.MockService, *recordingGateway) {
	t.Helper()
	mock := wallet.NewMockService()
	gw := &recordingGateway{}
	return NewPokerUseCase(testConfig(), mock, gw, nil), mock, gw
}

// fixedDeck builds a deck whose Draw() sequence is exactly draws.
func fixedDeck(draws []domain.Card) func() (*domain.Deck, error) {
	cards := make([]domain.Card, 0, 52)
	// padding below the scripted cards; never reached in these tests
	for rank := 2; rank <= 14; rank++ {
		cards = append(cards, domain.Card{Rank: rank, Suit: domain.Clubs})
	}
	for i := len(draws) - 1; i >= 0; i-- {
		cards = append(cards, draws[i])
	}
	return func() (*domain.Deck, error) {
		return domain.NewOrderedDeck(cards), nil
	}
}

func seatThreePlayers(t *testing.T, uc *PokerUseCase, mock *wallet.MockService) {
	t.Helper()
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		mock.SetBalance(id, 50000)
	}
	require.NoError(t, uc.JoinRoom(ctx, 1, "alice", "table-1", 10000))
	require.NoError(t, uc.JoinRoom(ctx, 2, "bob", "table-1", 10000))
	require.NoError(t, uc.JoinRoom(ctx, 3, "carol", "table-1", 10000))
}

func startHand(t *testing.T, uc *PokerUseCase, roomID string) *roomActor {
	t.Helper()
	actor, err := uc.getRoom(roomID)
	require.NoError(t, err)
	actor.mu.Lock()
	uc.startHandLocked(context.Background(), actor)
	actor.mu.Unlock()
	return actor
}

func TestAllInShowdown(t *testing.T) {
	ctx := context.Background()
	uc, mock, gw := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)

	// deal order: alice AA, bob KK, carol 72o; dry board, aces hold
	uc.newDeck = fixedDeck([]domain.Card{
		{Rank: 14, Suit: domain.Spades}, {Rank: 14, Suit: domain.Hearts}, // alice
		{Rank: 13, Suit: domain.Spades}, {Rank: 13, Suit: domain.Hearts}, // bob
		{Rank: 7, Suit: domain.Hearts}, {Rank: 2, Suit: domain.Diamonds}, // carol
		{Rank: 3, Suit: domain.Diamonds}, {Rank: 8, Suit: domain.Spades}, {Rank: 9, Suit: domain.Hearts}, // flop
		{Rank: 11, Suit: domain.Diamonds}, // turn
		{Rank: 4, Suit: domain.Spades},    // river
	})

	actor := startHand(t, uc, "table-1")

	actor.mu.Lock()
	room := actor.room
	// dealer alice(0), blinds bob 50 / carol 100, action on alice
	assert.Equal(t, 0, room.DealerIndex)
	assert.Equal(t, domain.PhasePreflop, room.Phase)
	assert.Equal(t, 0, room.CurrentIndex)
	total := room.TotalChips()
	actor.mu.Unlock()
	assert.Equal(t, int64(30000), total)

	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "all_in", 0))
	require.NoError(t, uc.HandleAction(ctx, 2, "table-1", "call", 0))
	require.NoError(t, uc.HandleAction(ctx, 3, "table-1", "fold", 0))

	// two all-ins run the board out to showdown; aces take it
	actor.mu.Lock()
	assert.Equal(t, domain.PhaseWaiting, room.Phase)
	assert.Equal(t, int64(20100), room.Seats[0].Chips)
	assert.Equal(t, int64(0), room.Seats[1].Chips)
	assert.Equal(t, int64(9900), room.Seats[2].Chips)
	assert.Equal(t, int64(30000), room.TotalChips())
	actor.mu.Unlock()

	ev, ok := gw.last("handEnded")
	require.True(t, ok)
	payload := ev.Data.(map[string]interface{})
	winners := payload["winners"].([]map[string]interface{})
	require.Len(t, winners, 1)
	assert.Equal(t, int64(1), winners[0]["user_id"])
	assert.Equal(t, "Pair", winners[0]["hand_name"])
}

func TestCallAndCheckAdvancesStreet(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)

	actor := startHand(t, uc, "table-1")

	// alice calls 100, bob completes the small blind, carol checks her bb
	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "call", 0))
	require.NoError(t, uc.HandleAction(ctx, 2, "table-1", "call", 0))
	require.NoError(t, uc.HandleAction(ctx, 3, "table-1", "check", 0))

	actor.mu.Lock()
	defer actor.mu.Unlock()
	room := actor.room
	assert.Equal(t, domain.PhaseFlop, room.Phase)
	assert.Len(t, room.Community, 3)
	assert.Equal(t, int64(300), room.Pot)
	assert.Equal(t, int64(0), room.CurrentBet)
	// post-flop action starts left of the dealer
	assert.Equal(t, 1, room.CurrentIndex)
	assert.Equal(t, int64(30000), room.TotalChips())
}

func TestTurnOrderEnforced(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)
	startHand(t, uc, "table-1")

	// preflop action is on alice; bob may not act
	err := uc.HandleAction(ctx, 2, "table-1", "call", 0)
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)
}

func TestRaiseIsTotalBetWithMinimum(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)
	actor := startHand(t, uc, "table-1")

	// below max(2*currentBet, currentBet+minBet) = 200
	err := uc.HandleAction(ctx, 1, "table-1", "raise", 150)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "raise", 300))

	actor.mu.Lock()
	defer actor.mu.Unlock()
	room := actor.room
	assert.Equal(t, int64(300), room.CurrentBet)
	assert.Equal(t, int64(300), room.Seats[0].Bet)
	assert.Equal(t, int64(9700), room.Seats[0].Chips)
	// a raise reopens action for the blinds
	assert.False(t, room.Seats[1].Acted)
	assert.False(t, room.Seats[2].Acted)
}

func TestCheckIllegalFacingBet(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)
	startHand(t, uc, "table-1")

	// alice owes 100, checking is not allowed
	err := uc.HandleAction(ctx, 1, "table-1", "check", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestFoldsAwardPotImmediately(t *testing.T) {
	ctx := context.Background()
	uc, mock, gw := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)
	actor := startHand(t, uc, "table-1")

	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "fold", 0))
	require.NoError(t, uc.HandleAction(ctx, 2, "table-1", "fold", 0))

	// carol wins the blinds without showdown
	actor.mu.Lock()
	room := actor.room
	assert.Equal(t, domain.PhaseWaiting, room.Phase)
	assert.Equal(t, int64(10050), room.Seats[2].Chips)
	assert.Equal(t, int64(30000), room.TotalChips())
	actor.mu.Unlock()

	ev, ok := gw.last("handEnded")
	require.True(t, ok)
	winners := ev.Data.(map[string]interface{})["winners"].([]map[string]interface{})
	require.Len(t, winners, 1)
	assert.Equal(t, int64(3), winners[0]["user_id"])
}

func TestBuyInDebitAndCashOut(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	mock.SetBalance(1, 50000)

	require.NoError(t, uc.JoinRoom(ctx, 1, "alice", "table-1", 10000))
	balance, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(40000), balance)

	txs := mock.Transactions(1)
	require.Len(t, txs, 1)
	assert.Equal(t, walletdomain.TypeGameLoss, txs[0].Type)
	assert.Equal(t, "Buy-in", txs[0].Description)

	require.NoError(t, uc.LeaveRoom(ctx, 1, "table-1"))
	balance, _ = mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(50000), balance)

	txs = mock.Transactions(1)
	require.Len(t, txs, 2)
	assert.Equal(t, walletdomain.TypeGameWin, txs[1].Type)
	assert.Equal(t, "Cash-out", txs[1].Description)
}

func TestJoinValidation(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	mock.SetBalance(1, 50000)

	// below ten big blinds
	err := uc.JoinRoom(ctx, 1, "alice", "table-1", 500)
	assert.ErrorIs(t, err, domain.ErrInvalidBuyIn)

	// failed debit seats nobody
	err = uc.JoinRoom(ctx, 1, "alice", "table-1", 90000)
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientFunds)
	actor, err := uc.getRoom("table-1")
	require.NoError(t, err)
	actor.mu.Lock()
	assert.Empty(t, actor.room.Seats)
	actor.mu.Unlock()

	require.NoError(t, uc.JoinRoom(ctx, 1, "alice", "table-1", 10000))
	err = uc.JoinRoom(ctx, 1, "alice", "table-1", 10000)
	assert.ErrorIs(t, err, domain.ErrAlreadySeated)
}

func TestLeaveMidHandForfeitsBetAndContinues(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	seatThreePlayers(t, uc, mock)
	actor := startHand(t, uc, "table-1")

	// alice calls then leaves; her chips cash out, her call stays in the pot
	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "call", 0))
	require.NoError(t, uc.LeaveRoom(ctx, 1, "table-1"))

	balance, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(49900), balance) // 50000 - 10000 buy-in + 9900 cash-out

	actor.mu.Lock()
	defer actor.mu.Unlock()
	room := actor.room
	assert.Len(t, room.Seats, 2)
	assert.NotEqual(t, domain.PhaseWaiting, room.Phase)
}

func TestTurnTimeoutAutoFolds(t *testing.T) {
	uc, mock, _ := newTestUseCase(t)
	uc.cfg.TurnTimeout = 30 * time.Millisecond
	seatThreePlayers(t, uc, mock)
	actor := startHand(t, uc, "table-1")

	// alice owes 100 and times out; the fold passes action to bob
	require.Eventually(t, func() bool {
		actor.mu.Lock()
		defer actor.mu.Unlock()
		return actor.room.Seats[0].Folded
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSplitPotOnTie(t *testing.T) {
	ctx := context.Background()
	uc, mock, _ := newTestUseCase(t)
	mock.SetBalance(1, 50000)
	mock.SetBalance(2, 50000)
	require.NoError(t, uc.JoinRoom(ctx, 1, "alice", "table-1", 10000))
	require.NoError(t, uc.JoinRoom(ctx, 2, "bob", "table-1", 10000))

	// both play the board: a broadway straight on the table
	uc.newDeck = fixedDeck([]domain.Card{
		{Rank: 2, Suit: domain.Spades}, {Rank: 3, Suit: domain.Hearts}, // alice
		{Rank: 2, Suit: domain.Hearts}, {Rank: 3, Suit: domain.Spades}, // bob
		{Rank: 10, Suit: domain.Diamonds}, {Rank: 11, Suit: domain.Spades}, {Rank: 12, Suit: domain.Hearts}, // flop
		{Rank: 13, Suit: domain.Diamonds}, // turn
		{Rank: 14, Suit: domain.Clubs},    // river
	})

	actor := startHand(t, uc, "table-1")

	// heads-up: the small blind (bob) acts first preflop
	require.NoError(t, uc.HandleAction(ctx, 2, "table-1", "all_in", 0))
	require.NoError(t, uc.HandleAction(ctx, 1, "table-1", "call", 0))

	actor.mu.Lock()
	defer actor.mu.Unlock()
	room := actor.room
	assert.Equal(t, int64(10000), room.Seats[0].Chips)
	assert.Equal(t, int64(10000), room.Seats[1].Chips)
	assert.Equal(t, int64(20000), room.TotalChips())
}
