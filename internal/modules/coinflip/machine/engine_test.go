package machine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullGateway struct {
	mu     sync.Mutex
	events []string
}

func (g *nullGateway) Broadcast(room, command string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, command)
}

func (g *nullGateway) SendToUser(userID int64, room, command string, data interface{}) {}

func testConfig() config.CoinflipConfig {
	return config.CoinflipConfig{
		BettingDuration:  15 * time.Second,
		FlippingDuration: 5 * time.Second,
		ResultDuration:   5 * time.Second,
		HouseEdge:        0.05,
		HistorySize:      10,
	}
}

func newTestEngine(t *testing.T) (*Engine, *wallet.MockService) {
	t.Helper()
	mock := wallet.NewMockService()
	return NewEngine(testConfig(), mock, &nullGateway{}, nil), mock
}

func TestPoolSplit(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine(t)
	mock.SetBalance(1, 100000) // A
	mock.SetBalance(2, 100000) // B
	mock.SetBalance(3, 100000) // C

	require.NoError(t, e.startBetting(ctx))

	_, err := e.PlaceBet(ctx, 1, "a", 10000, fairness.SideHeads) // 100 heads
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, 2, "b", 5000, fairness.SideHeads) // 50 heads
	require.NoError(t, err)
	_, err = e.PlaceBet(ctx, 3, "c", 20000, fairness.SideTails) // 200 tails
	require.NoError(t, err)

	e.settle(ctx, fairness.SideHeads)

	// pot 350, distributable 332.50 at 5% edge
	// A: floor(100/150 * 332.50 * 100)/100 = 221.66
	// B: 110.83; C: nothing
	balA, _ := mock.GetBalance(ctx, 1)
	balB, _ := mock.GetBalance(ctx, 2)
	balC, _ := mock.GetBalance(ctx, 3)
	assert.Equal(t, int64(112166), balA)
	assert.Equal(t, int64(106083), balB)
	assert.Equal(t, int64(80000), balC)

	// sum of payouts never exceeds the distributable pot
	assert.LessOrEqual(t, int64(22166+11083), int64(33250))
}

func TestNoWinnersHouseKeepsPot(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine(t)
	mock.SetBalance(1, 100000)

	require.NoError(t, e.startBetting(ctx))
	_, err := e.PlaceBet(ctx, 1, "a", 10000, fairness.SideTails)
	require.NoError(t, err)

	e.settle(ctx, fairness.SideHeads)

	bal, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(90000), bal)
	require.Len(t, mock.Transactions(1), 1)
	assert.Equal(t, walletdomain.TypeGameLoss, mock.Transactions(1)[0].Type)
}

func TestBetRejectedAfterBettingCloses(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine(t)
	mock.SetBalance(1, 100000)

	require.NoError(t, e.startBetting(ctx))
	e.settle(ctx, fairness.SideHeads)

	_, err := e.PlaceBet(ctx, 1, "a", 10000, fairness.SideHeads)
	assert.ErrorIs(t, err, domain.ErrPhaseViolation)

	bal, _ := mock.GetBalance(ctx, 1)
	assert.Equal(t, int64(100000), bal)
}

func TestBetValidation(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine(t)
	mock.SetBalance(1, 100000)

	require.NoError(t, e.startBetting(ctx))

	_, err := e.PlaceBet(ctx, 1, "a", 0, fairness.SideHeads)
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, err = e.PlaceBet(ctx, 1, "a", 10000, fairness.Side("edge"))
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, err = e.PlaceBet(ctx, 1, "a", 200000, fairness.SideHeads)
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientFunds)

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Empty(t, e.round.Bets)
	assert.Zero(t, e.round.PotCents)
}

func TestOutcomeIsVerifiable(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	require.NoError(t, e.startBetting(ctx))
	e.mu.Lock()
	round := e.round
	e.mu.Unlock()

	e.flip(ctx)

	assert.True(t, fairness.Verify(round.ServerSeed, round.Hash))
	assert.Equal(t, fairness.CoinFlip(round.ServerSeed, round.ClientSeed), round.Outcome)
}

func TestResultPhaseRecordsHistory(t *testing.T) {
	ctx := context.Background()
	e, mock := newTestEngine(t)
	mock.SetBalance(1, 100000)

	require.NoError(t, e.startBetting(ctx))
	_, err := e.PlaceBet(ctx, 1, "a", 10000, fairness.SideHeads)
	require.NoError(t, err)

	e.settle(ctx, fairness.SideHeads)
	e.showResult(ctx)

	snap := e.Snapshot()
	assert.Equal(t, string(domain.StatusResult), snap.Status)
	require.Len(t, snap.History, 1)
	assert.Equal(t, fairness.SideHeads, snap.History[0].Outcome)
	assert.Equal(t, int64(10000), snap.History[0].PotCents)

	// next round starts clean
	require.NoError(t, e.startBetting(ctx))
	snap = e.Snapshot()
	assert.Equal(t, string(domain.StatusBetting), snap.Status)
	assert.Empty(t, snap.Bets)
	assert.Equal(t, "0.00", snap.Pot)
	assert.Len(t, snap.History, 1)
}

func TestTimeLeftDerivedFromWallClock(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	require.NoError(t, e.startBetting(ctx))

	e.mu.Lock()
	e.phaseEnd = time.Now().Add(3 * time.Second)
	e.mu.Unlock()

	snap := e.Snapshot()
	assert.InDelta(t, 3.0, snap.TimeLeft, 0.5)

	e.mu.Lock()
	e.phaseEnd = time.Now().Add(-time.Second)
	e.mu.Unlock()

	snap = e.Snapshot()
	assert.Zero(t, snap.TimeLeft)
}
