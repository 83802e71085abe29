package machine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayEvent struct {
	Room    string
	Command string
	UserID  int64
	Data    interface{}
}

// recordingGateway captures broadcasts so tests can assert event order.
type recordingGateway struct {
	mu         sync.Mutex
	broadcasts []gatewayEvent
	privates   []gatewayEvent
}

func (g *recordingGateway) Broadcast(room, command string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcasts = append(g.broadcasts, gatewayEvent{Room: room, Command: command, Data: data})
}

func (g *recordingGateway) SendToUser(userID int64, room, command string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.privates = append(g.privates, gatewayEvent{Room: room, Command: command, UserID: userID, Data: data})
}

func (g *recordingGateway) byCommand(command string) []gatewayEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayEvent
	for _, ev := range g.broadcasts {
		if ev.Command == command {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() config.AviatorConfig {
	return config.AviatorConfig{
		TickInterval:    100 * time.Millisecond,
		WaitingDuration: 5 * time.Second,
		InterRoundDelay: 3 * time.Second,
		HouseEdge:       0.04,
		MaxMultiplier:   1000.0,
		GrowthRate:      0.00006,
		HistorySize:     25,
		MaxBetsPerUser:  2,
	}
}

func newTestEngine(t *testing.T) (*Engine, *wallet.MockService, *recordingGateway) {
	t.Helper()
	mock := wallet.NewMockService()
	gw := &recordingGateway{}
	return NewEngine(testConfig(), mock, gw, nil), mock, gw
}

// startRound opens the betting window with a pinned crash point.
func startRound(t *testing.T, e *Engine, crashPoint float64) {
	t.Helper()
	require.NoError(t, e.startWaiting(context.Background()))
	e.mu.Lock()
	e.round.CrashPoint = crashPoint
	e.mu.Unlock()
}

// rewindFlight moves the flight start back so the current multiplier is
// e^(cfg.GrowthRate * elapsedMs).
func rewindFlight(e *Engine, elapsed time.Duration) {
	e.mu.Lock()
	e.startTime = time.Now().Add(-elapsed)
	e.mu.Unlock()
}

func TestAutoCashoutThenCrashSettlesOnce(t *testing.T) {
	ctx := context.Background()
	e, mock, gw := newTestEngine(t)
	mock.SetBalance(1, 100000) // $1000

	startRound(t, e, 5.00)

	bet, newBalance, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 2.00)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), newBalance)
	assert.Equal(t, domain.BetActive, bet.Status)

	e.beginFlight(ctx)

	// 12s of flight: m = e^0.72 ~= 2.05, past the 2.00 target, below 5.00
	rewindFlight(e, 12*time.Second)
	crashed := e.tick(ctx)
	assert.False(t, crashed)

	assert.Equal(t, domain.BetCashedOut, bet.Status)
	assert.Equal(t, 2.00, bet.CashoutMultiplier)
	assert.Equal(t, int64(10000), bet.ProfitCents)

	balance, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(110000), balance) // $1100

	// 27.2s: m ~= 5.11 >= crashPoint, round crashes
	rewindFlight(e, 27200*time.Millisecond)
	crashed = e.tick(ctx)
	assert.True(t, crashed)

	// the cashed-out bet is not re-settled
	assert.Equal(t, domain.BetCashedOut, bet.Status)
	balance, _ = mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(110000), balance)
	assert.Len(t, mock.Transactions(1), 2) // one game_loss, one game_win

	assert.Len(t, gw.byCommand("player_cashout"), 1)
	assert.NotEmpty(t, gw.byCommand("history"))
}

func TestCrashBeforeCashout(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 1.50)

	bet, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)

	e.beginFlight(ctx)

	// 7s: m = e^0.42 ~= 1.52 >= 1.50
	rewindFlight(e, 7*time.Second)
	assert.True(t, e.tick(ctx))

	assert.Equal(t, domain.BetLost, bet.Status)
	balance, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(90000), balance)

	txs := mock.Transactions(1)
	require.Len(t, txs, 1)
	assert.Equal(t, walletdomain.TypeGameLoss, txs[0].Type)
}

func TestLateCashoutRejected(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 5.00)

	bet, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)

	e.beginFlight(ctx)

	// m_server ~= 5.10 > crashPoint 5.00
	rewindFlight(e, 27160*time.Millisecond)
	_, _, err = e.CashOut(ctx, 1, 1, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyCrashed)

	assert.True(t, e.tick(ctx))
	assert.Equal(t, domain.BetLost, bet.Status)
}

func TestLagCompensation(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 100.0)
	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)
	e.beginFlight(ctx)

	// m_server ~= 2.05; client reports 2.00, within the 0.10 tolerance
	rewindFlight(e, 12*time.Second)
	bet, _, err := e.CashOut(ctx, 1, 1, 2.00)
	require.NoError(t, err)
	assert.Equal(t, 2.00, bet.CashoutMultiplier)
	assert.Equal(t, int64(10000), bet.ProfitCents)
}

func TestClientMultiplierOutsideToleranceIgnored(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 100.0)
	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)
	e.beginFlight(ctx)

	// m_server ~= 2.05; a claim of 1.50 lags too far and is ignored
	rewindFlight(e, 12*time.Second)
	bet, _, err := e.CashOut(ctx, 1, 1, 1.50)
	require.NoError(t, err)
	assert.Greater(t, bet.CashoutMultiplier, 2.0)
}

func TestConcurrentDoubleCashout(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 100.0)
	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)
	e.beginFlight(ctx)
	rewindFlight(e, 12*time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = e.CashOut(ctx, 1, 1, 0)
		}(i)
	}
	wg.Wait()

	var ok, settled int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case err == domain.ErrAlreadySettled:
			settled++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, settled)

	// exactly one payout applied
	assert.Len(t, mock.Transactions(1), 2)
}

func TestBetPhaseAndSlotValidation(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 5.00)

	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 3, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, _, err = e.PlaceBet(ctx, 1, "alice", -5, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, _, err = e.PlaceBet(ctx, 1, "alice", 10000, 1, 1.0)
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, _, err = e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)

	// same slot twice
	_, _, err = e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	assert.ErrorIs(t, err, domain.ErrBetLimit)

	// second slot is independent
	_, _, err = e.PlaceBet(ctx, 1, "alice", 10000, 2, 0)
	require.NoError(t, err)

	e.beginFlight(ctx)
	_, _, err = e.PlaceBet(ctx, 2, "bob", 10000, 1, 0)
	assert.ErrorIs(t, err, domain.ErrPhaseViolation)
}

func TestInsufficientFundsLeavesNoBet(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 500)

	startRound(t, e, 5.00)

	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientFunds)

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Empty(t, e.betOrder)
}

func TestAutoCashoutOrdering(t *testing.T) {
	ctx := context.Background()
	e, mock, gw := newTestEngine(t)
	for id := int64(1); id <= 3; id++ {
		mock.SetBalance(id, 100000)
	}

	startRound(t, e, 100.0)

	base := time.Now()
	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 1.50)
	require.NoError(t, err)
	_, _, err = e.PlaceBet(ctx, 2, "bob", 10000, 1, 1.20)
	require.NoError(t, err)
	_, _, err = e.PlaceBet(ctx, 3, "carol", 10000, 1, 1.50)
	require.NoError(t, err)

	// pin creation order: carol's 1.50 predates alice's
	e.mu.Lock()
	e.bets[betKey(3, 1)].CreatedAt = base.Add(-2 * time.Second)
	e.bets[betKey(1, 1)].CreatedAt = base.Add(-1 * time.Second)
	e.bets[betKey(2, 1)].CreatedAt = base
	e.mu.Unlock()

	e.beginFlight(ctx)
	rewindFlight(e, 12*time.Second) // m ~= 2.05, all targets due
	assert.False(t, e.tick(ctx))

	events := gw.byCommand("player_cashout")
	require.Len(t, events, 3)
	names := make([]string, 0, 3)
	for _, ev := range events {
		names = append(names, ev.Data.(map[string]interface{})["username"].(string))
	}
	// (autoCashout asc, createdAt asc): bob 1.20, then carol and alice at 1.50
	assert.Equal(t, []string{"bob", "carol", "alice"}, names)
}

func TestAutoCashoutBelowCrashPointHonouredOnCrashTick(t *testing.T) {
	ctx := context.Background()
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)
	mock.SetBalance(2, 100000)

	startRound(t, e, 2.00)

	reachable, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 1.50)
	require.NoError(t, err)
	atCrash, _, err := e.PlaceBet(ctx, 2, "bob", 10000, 1, 2.00)
	require.NoError(t, err)

	e.beginFlight(ctx)

	// jump straight past the crash point in one tick
	rewindFlight(e, 13*time.Second) // m ~= 2.18
	assert.True(t, e.tick(ctx))

	assert.Equal(t, domain.BetCashedOut, reachable.Status)
	assert.Equal(t, 1.50, reachable.CashoutMultiplier)
	assert.Equal(t, domain.BetLost, atCrash.Status)
}

// stubRoundRepo serves canned rounds for history replay.
type stubRoundRepo struct {
	rounds []*domain.CrashRound
	err    error
}

func (r *stubRoundRepo) CreateRound(ctx context.Context, round *domain.CrashRound) error { return nil }
func (r *stubRoundRepo) UpdateRound(ctx context.Context, round *domain.CrashRound) error { return nil }
func (r *stubRoundRepo) CreateBet(ctx context.Context, bet *domain.CrashBet) error       { return nil }
func (r *stubRoundRepo) UpdateBet(ctx context.Context, bet *domain.CrashBet) error       { return nil }

func (r *stubRoundRepo) RecentRounds(ctx context.Context, limit int) ([]*domain.CrashRound, error) {
	if r.err != nil {
		return nil, r.err
	}
	if limit < len(r.rounds) {
		return r.rounds[:limit], nil
	}
	return r.rounds, nil
}

func TestHistorySeededFromStore(t *testing.T) {
	repo := &stubRoundRepo{rounds: []*domain.CrashRound{
		{RoundID: "round-2", CrashPoint: 3.41, Hash: "hash-2", ServerSeed: "seed-2"},
		{RoundID: "round-1", CrashPoint: 1.17, Hash: "hash-1", ServerSeed: "seed-1"},
	}}
	e := NewEngine(testConfig(), wallet.NewMockService(), &recordingGateway{}, repo)

	e.loadHistory(context.Background())

	snap := e.Snapshot()
	require.Len(t, snap.History, 2)
	assert.Equal(t, "round-2", snap.History[0].RoundID) // newest first
	assert.Equal(t, 3.41, snap.History[0].CrashPoint)
	assert.Equal(t, "seed-1", snap.History[1].ServerSeed)
}

func TestHistorySeedTruncatedToConfiguredSize(t *testing.T) {
	repo := &stubRoundRepo{}
	for i := 0; i < 40; i++ {
		repo.rounds = append(repo.rounds, &domain.CrashRound{RoundID: domain.NewRoundID(), CrashPoint: 2.0})
	}
	e := NewEngine(testConfig(), wallet.NewMockService(), &recordingGateway{}, repo)

	e.loadHistory(context.Background())

	assert.Len(t, e.Snapshot().History, testConfig().HistorySize)
}

func TestGrowthRateComesFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.GrowthRate = 0.00012 // twice the default curve
	mock := wallet.NewMockService()
	mock.SetBalance(1, 100000)
	e := NewEngine(cfg, mock, &recordingGateway{}, nil)

	startRound(t, e, 100.0)
	_, _, err := e.PlaceBet(ctx, 1, "alice", 10000, 1, 0)
	require.NoError(t, err)
	e.beginFlight(ctx)

	// 6s at the doubled rate: m = e^0.72 ~= 2.05; the default rate would
	// still be at ~1.43
	rewindFlight(e, 6*time.Second)
	bet, _, err := e.CashOut(ctx, 1, 1, 0)
	require.NoError(t, err)
	assert.Greater(t, bet.CashoutMultiplier, 2.0)
	assert.Less(t, bet.CashoutMultiplier, 2.1)
}

func TestSnapshotWaiting(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.SetBalance(1, 100000)

	startRound(t, e, 5.00)
	_, _, err := e.PlaceBet(context.Background(), 1, "alice", 10000, 1, 0)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, string(domain.RoundWaiting), snap.Phase)
	assert.NotEmpty(t, snap.RoundID)
	assert.NotEmpty(t, snap.Hash)
	assert.Empty(t, snap.ServerSeed) // never leaked before crash
	assert.Greater(t, snap.Countdown, 0.0)
	require.Len(t, snap.Bets, 1)
	assert.Equal(t, "alice", snap.Bets[0].Username)
	assert.Equal(t, "100.00", snap.Bets[0].Amount)
}
