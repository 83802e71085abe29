// Package machine implements the timer-driven pooled-bet coinflip engine.
// A single Engine instance owns the global room and loops betting ->
// flipping -> result on wall-clock deadlines.
package machine

import (
	"context"
	"sync"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/shopspring/decimal"
)

// Room is the broadcast namespace the engine publishes to.
const Room = "coinflip"

// Engine is the single-writer actor for the global coinflip room.
type Engine struct {
	cfg      config.CoinflipConfig
	wallet   service.WalletService
	gateway  service.GatewayService
	histRepo domain.HistoryRepository

	mu       sync.Mutex
	round    *domain.Round
	phaseEnd time.Time
	winners  []domain.Winner
	history  []domain.HistoryEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewEngine creates the coinflip engine. histRepo may be nil in tests.
func NewEngine(cfg config.CoinflipConfig, wallet service.WalletService, gateway service.GatewayService, histRepo domain.HistoryRepository) *Engine {
	return &Engine{
		cfg:      cfg,
		wallet:   wallet,
		gateway:  gateway,
		histRepo: histRepo,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the room loop until the context is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	logger.Info(ctx).Msg("coinflip engine started")

	if e.histRepo != nil {
		if history, err := e.histRepo.Recent(ctx, e.cfg.HistorySize); err == nil {
			e.mu.Lock()
			e.history = history
			e.mu.Unlock()
		} else {
			logger.Warn(ctx).Err(err).Msg("coinflip: history load failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}
		e.runRound(ctx)
	}
}

// Stop signals the engine to finish the current round and exit. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) runRound(ctx context.Context) {
	if err := e.startBetting(ctx); err != nil {
		logger.Error(ctx).Err(err).Msg("coinflip: failed to create round")
		e.wait(ctx, time.Second)
		return
	}
	if !e.waitPhase(ctx) {
		return
	}

	e.flip(ctx)
	if !e.waitPhase(ctx) {
		return
	}

	e.showResult(ctx)
	e.waitPhase(ctx)
}

// waitPhase sleeps until the current phase deadline, broadcasting the derived
// timeLeft once per second. timeLeft comes from the wall clock so skew never
// accumulates.
func (e *Engine) waitPhase(ctx context.Context) bool {
	for {
		e.mu.Lock()
		remaining := time.Until(e.phaseEnd)
		e.mu.Unlock()
		if remaining <= 0 {
			return true
		}

		step := time.Second
		if remaining < step {
			step = remaining
		}
		if !e.wait(ctx, step) {
			return false
		}
		e.broadcastState()
	}
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-e.stopCh:
		return false
	case <-t.C:
		return true
	}
}

// startBetting opens a fresh round with a committed seed pair.
func (e *Engine) startBetting(ctx context.Context) error {
	pair, err := fairness.NewSeedPair()
	if err != nil {
		return err
	}
	clientSeed, err := fairness.NewClientSeed()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.round = &domain.Round{
		RoundID:    domain.NewRoundID(),
		Status:     domain.StatusBetting,
		Hash:       pair.Hash,
		ServerSeed: pair.ServerSeed,
		ClientSeed: clientSeed,
	}
	e.phaseEnd = time.Now().Add(e.cfg.BettingDuration)
	e.winners = nil
	roundID := e.round.RoundID
	e.mu.Unlock()

	logger.Info(ctx).Str("round_id", roundID).Msg("coinflip: betting open")
	e.broadcastState()
	return nil
}

// flip closes betting, decides the outcome and credits the winners.
func (e *Engine) flip(ctx context.Context) {
	e.mu.Lock()
	round := e.round
	if round == nil || round.Status != domain.StatusBetting {
		e.mu.Unlock()
		return
	}
	outcome := fairness.CoinFlip(round.ServerSeed, round.ClientSeed)
	e.mu.Unlock()

	e.settle(ctx, outcome)
}

// settle applies the pool payout for the given outcome and moves the round
// into the flipping phase. Split out from flip so its math is testable with
// a pinned outcome.
func (e *Engine) settle(ctx context.Context, outcome fairness.Side) {
	e.mu.Lock()
	round := e.round
	if round == nil || round.Status != domain.StatusBetting {
		e.mu.Unlock()
		return
	}
	round.Status = domain.StatusFlipping
	round.Outcome = outcome
	e.phaseEnd = time.Now().Add(e.cfg.FlippingDuration)

	var totalWinning int64
	for _, bet := range round.Bets {
		if bet.Side == outcome {
			totalWinning += bet.AmountCents
		}
	}
	distributable := money.ApplyEdge(round.PotCents, decimal.NewFromFloat(e.cfg.HouseEdge))

	winners := make([]domain.Winner, 0)
	if totalWinning > 0 {
		for _, bet := range round.Bets {
			if bet.Side != outcome {
				continue
			}
			payout := money.ProRataShare(bet.AmountCents, totalWinning, distributable)
			winners = append(winners, domain.Winner{
				UserID:      bet.UserID,
				Username:    bet.Username,
				Amount:      money.Format(bet.AmountCents),
				Payout:      money.Format(payout),
				PayoutCents: payout,
			})
		}
	}
	e.winners = winners
	e.mu.Unlock()

	// credits happen outside the lock; the round is already terminal for
	// betting so no state race is possible
	for _, w := range winners {
		if w.PayoutCents <= 0 {
			continue
		}
		_, err := e.wallet.ProcessTransaction(ctx, service.TransactionRequest{
			UserID:      w.UserID,
			Type:        string(walletdomain.TypeGameWin),
			AmountCents: w.PayoutCents,
			Description: "Coinflip win",
			Metadata: map[string]interface{}{
				"game":     "coinflip",
				"round_id": round.RoundID,
				"outcome":  string(outcome),
			},
		})
		if err != nil {
			logger.Error(ctx).Err(err).
				Int64("user_id", w.UserID).
				Str("round_id", round.RoundID).
				Msg("coinflip: payout failed")
		}
	}

	logger.Info(ctx).
		Str("round_id", round.RoundID).
		Str("outcome", string(outcome)).
		Int64("pot_cents", round.PotCents).
		Int("winners", len(winners)).
		Msg("coinflip: flipped")

	e.broadcastState()
}

// showResult reveals the seed, publishes the winners list and records the
// round in the history feed.
func (e *Engine) showResult(ctx context.Context) {
	e.mu.Lock()
	round := e.round
	if round == nil || round.Status != domain.StatusFlipping {
		e.mu.Unlock()
		return
	}
	round.Status = domain.StatusResult
	e.phaseEnd = time.Now().Add(e.cfg.ResultDuration)

	entry := domain.HistoryEntry{
		RoundID:    round.RoundID,
		Outcome:    round.Outcome,
		Hash:       round.Hash,
		ServerSeed: round.ServerSeed,
		PotCents:   round.PotCents,
	}
	e.history = append([]domain.HistoryEntry{entry}, e.history...)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[:e.cfg.HistorySize]
	}
	winners := e.winners
	e.mu.Unlock()

	if e.histRepo != nil {
		if err := e.histRepo.Push(ctx, entry, e.cfg.HistorySize); err != nil {
			logger.Warn(ctx).Err(err).Msg("coinflip: history persist failed")
		}
	}

	e.gateway.Broadcast(Room, "roundResult", map[string]interface{}{
		"round_id":    round.RoundID,
		"outcome":     string(round.Outcome),
		"server_seed": round.ServerSeed,
		"hash":        round.Hash,
		"winners":     winners,
	})
	e.broadcastState()
}

// PlaceBet accepts a wager during the betting window. The debit and the bet
// record succeed or fail together.
func (e *Engine) PlaceBet(ctx context.Context, userID int64, username string, amountCents int64, side fairness.Side) (int64, error) {
	if amountCents <= 0 {
		return 0, domain.ErrInvalidBet
	}
	if side != fairness.SideHeads && side != fairness.SideTails {
		return 0, domain.ErrInvalidBet
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.round
	if round == nil || round.Status != domain.StatusBetting {
		return 0, domain.ErrPhaseViolation
	}

	result, err := e.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      userID,
		Type:        string(walletdomain.TypeGameLoss),
		AmountCents: amountCents,
		Description: "Coinflip bet",
		Metadata: map[string]interface{}{
			"game":     "coinflip",
			"round_id": round.RoundID,
			"side":     string(side),
		},
	})
	if err != nil {
		return 0, err
	}

	round.Bets = append(round.Bets, &domain.Bet{
		UserID:      userID,
		Username:    username,
		AmountCents: amountCents,
		Side:        side,
	})
	round.PotCents += amountCents

	return result.NewBalanceCents, nil
}

// Snapshot is the authoritative state sent on join and on each second tick.
type Snapshot struct {
	Status   string                `json:"status"`
	RoundID  string                `json:"round_id"`
	TimeLeft float64               `json:"time_left"`
	Outcome  string                `json:"outcome,omitempty"`
	Hash     string                `json:"hash"`
	Pot      string                `json:"pot"`
	Bets     []SnapshotBet         `json:"bets"`
	History  []domain.HistoryEntry `json:"history"`
}

// SnapshotBet is the public view of one pooled bet.
type SnapshotBet struct {
	Username string `json:"username"`
	Amount   string `json:"amount"`
	Side     string `json:"side"`
}

// Snapshot returns the current room state with wall-clock-derived timeLeft.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		History: make([]domain.HistoryEntry, len(e.history)),
	}
	copy(snap.History, e.history)

	round := e.round
	if round == nil {
		return snap
	}

	left := time.Until(e.phaseEnd).Seconds()
	if left < 0 {
		left = 0
	}

	snap.Status = string(round.Status)
	snap.RoundID = round.RoundID
	snap.TimeLeft = left
	snap.Hash = round.Hash
	snap.Pot = money.Format(round.PotCents)
	if round.Status != domain.StatusBetting {
		snap.Outcome = string(round.Outcome)
	}
	snap.Bets = make([]SnapshotBet, 0, len(round.Bets))
	for _, bet := range round.Bets {
		snap.Bets = append(snap.Bets, SnapshotBet{
			Username: bet.Username,
			Amount:   money.Format(bet.AmountCents),
			Side:     string(bet.Side),
		})
	}
	return snap
}

func (e *Engine) broadcastState() {
	e.gateway.Broadcast(Room, "gameState", e.Snapshot())
}
