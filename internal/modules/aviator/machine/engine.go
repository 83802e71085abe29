// Package machine implements the tick-driven crash round engine. One Engine
// instance owns the aviator namespace: it runs the Waiting -> Flying ->
// Crashed -> Waiting loop, accepts bets during waiting, scans auto-cashouts
// on every tick and settles the round on crash.
package machine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/config"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/fairness"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/shopspring/decimal"
)

// Room is the broadcast namespace the engine publishes to.
const Room = "aviator"

// lagTolerance is the maximum gap between the server multiplier and a
// client-reported multiplier that still honours the client value.
const lagTolerance = 0.10

// Engine is the single-writer actor for the crash game. All state mutation
// happens under mu; the run loop and the bet/cashout handlers serialize on it.
type Engine struct {
	cfg     config.AviatorConfig
	wallet  service.WalletService
	gateway service.GatewayService
	repo    domain.RoundRepository

	mu         sync.Mutex
	round      *domain.CrashRound
	bets       map[string]*domain.CrashBet // userID:betNumber
	betOrder   []*domain.CrashBet
	startTime  time.Time
	waitingEnd time.Time
	// crashing latches once a tick observes m >= crashPoint so a tick that
	// was blocked on the mutex cannot broadcast a stale flying state.
	crashing bool
	history  []domain.HistoryEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewEngine creates the crash engine. repo may be nil in tests.
func NewEngine(cfg config.AviatorConfig, wallet service.WalletService, gateway service.GatewayService, repo domain.RoundRepository) *Engine {
	return &Engine{
		cfg:     cfg,
		wallet:  wallet,
		gateway: gateway,
		repo:    repo,
		bets:    make(map[string]*domain.CrashBet),
		stopCh:  make(chan struct{}),
	}
}

// Start runs the round loop until the context is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.loadHistory(ctx)
	logger.Info(ctx).Msg("aviator engine started")
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

// loadHistory warms the public round history from persisted crashed rounds
// so a restarted process does not present an empty feed.
func (e *Engine) loadHistory(ctx context.Context) {
	if e.repo == nil {
		return
	}
	rounds, err := e.repo.RecentRounds(ctx, e.cfg.HistorySize)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("aviator: load round history failed")
		return
	}
	history := make([]domain.HistoryEntry, 0, len(rounds))
	for _, r := range rounds {
		history = append(history, domain.HistoryEntry{
			RoundID:    r.RoundID,
			CrashPoint: r.CrashPoint,
			Hash:       r.Hash,
			ServerSeed: r.ServerSeed,
		})
	}

	e.mu.Lock()
	e.history = history
	e.mu.Unlock()

	logger.Info(ctx).Int("rounds", len(history)).Msg("aviator: round history loaded")
}

// Stop signals the engine to finish the current round and exit. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) runRound(ctx context.Context) {
	if err := e.startWaiting(ctx); err != nil {
		logger.Error(ctx).Err(err).Msg("aviator: failed to create round")
		e.sleep(ctx, time.Second)
		return
	}

	if !e.sleep(ctx, e.cfg.WaitingDuration) {
		return
	}

	e.beginFlight(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.tick(ctx) {
				e.sleep(ctx, e.cfg.InterRoundDelay)
				return
			}
		}
	}
}

// sleep waits for d, returning false if the engine was stopped meanwhile.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
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

// startWaiting creates the next provably-fair round and opens the bet window.
func (e *Engine) startWaiting(ctx context.Context) error {
	pair, err := fairness.NewSeedPair()
	if err != nil {
		return err
	}
	clientSeed, err := fairness.NewClientSeed()
	if err != nil {
		return err
	}

	round := &domain.CrashRound{
		RoundID:    domain.NewRoundID(),
		CrashPoint: fairness.CrashPoint(pair.ServerSeed, clientSeed, e.cfg.HouseEdge, e.cfg.MaxMultiplier),
		Status:     domain.RoundWaiting,
		Hash:       pair.Hash,
		ServerSeed: pair.ServerSeed,
		ClientSeed: clientSeed,
	}

	e.mu.Lock()
	e.round = round
	e.bets = make(map[string]*domain.CrashBet)
	e.betOrder = e.betOrder[:0]
	e.crashing = false
	e.waitingEnd = time.Now().Add(e.cfg.WaitingDuration)
	e.mu.Unlock()

	if e.repo != nil {
		if err := e.repo.CreateRound(ctx, round); err != nil {
			logger.Error(ctx).Err(err).Str("round_id", round.RoundID).Msg("aviator: persist round failed")
		}
	}

	logger.Info(ctx).
		Str("round_id", round.RoundID).
		Str("hash", round.Hash).
		Msg("aviator: waiting for bets")

	e.gateway.Broadcast(Room, "game_state", map[string]interface{}{
		"phase":     string(domain.RoundWaiting),
		"round_id":  round.RoundID,
		"hash":      round.Hash,
		"countdown": e.cfg.WaitingDuration.Seconds(),
	})
	return nil
}

// beginFlight transitions Waiting -> Flying and stamps the start time the
// multiplier curve is computed from.
func (e *Engine) beginFlight(ctx context.Context) {
	e.mu.Lock()
	round := e.round
	if round == nil || round.Status != domain.RoundWaiting {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	round.Status = domain.RoundFlying
	round.StartTime = &now
	e.startTime = now
	e.mu.Unlock()

	if e.repo != nil {
		if err := e.repo.UpdateRound(ctx, round); err != nil {
			logger.Error(ctx).Err(err).Str("round_id", round.RoundID).Msg("aviator: persist round failed")
		}
	}

	logger.Info(ctx).
		Str("round_id", round.RoundID).
		Float64("crash_point", round.CrashPoint).
		Msg("aviator: flying")

	e.gateway.Broadcast(Room, "game_state", map[string]interface{}{
		"phase":      string(domain.RoundFlying),
		"round_id":   round.RoundID,
		"hash":       round.Hash,
		"start_time": now.UnixMilli(),
	})
}

// tick advances one flight step. Returns true once the round has crashed.
// The multiplier is always derived from the wall clock; a tick that arrives
// after the crash latch is set does nothing.
func (e *Engine) tick(ctx context.Context) bool {
	e.mu.Lock()
	round := e.round
	if round == nil || round.Status != domain.RoundFlying || e.crashing {
		e.mu.Unlock()
		return true
	}

	now := time.Now()
	elapsedMs := now.Sub(e.startTime).Milliseconds()
	m := fairness.Multiplier(elapsedMs, e.cfg.GrowthRate)

	if m >= round.CrashPoint {
		e.crashing = true
		e.crashLocked(ctx, now)
		e.mu.Unlock()
		return true
	}

	e.autoCashoutsLocked(ctx, m, false)

	e.mu.Unlock()

	e.gateway.Broadcast(Room, "tick", map[string]interface{}{
		"multiplier": fairness.RoundMultiplier(m, 4),
		"elapsed":    elapsedMs,
	})
	return false
}

// autoCashoutsLocked cashes out every active bet whose registered target is
// at or below the threshold (strictly below when strict is set), in
// (autoCashout asc, createdAt asc) order. Caller holds mu.
func (e *Engine) autoCashoutsLocked(ctx context.Context, threshold float64, strict bool) {
	var due []*domain.CrashBet
	for _, bet := range e.betOrder {
		if bet.Status != domain.BetActive || bet.AutoCashout <= 0 {
			continue
		}
		if bet.AutoCashout < threshold || (!strict && bet.AutoCashout == threshold) {
			due = append(due, bet)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].AutoCashout != due[j].AutoCashout {
			return due[i].AutoCashout < due[j].AutoCashout
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	for _, bet := range due {
		multiplier := fairness.RoundMultiplier(bet.AutoCashout, 2)
		if _, err := e.settleCashoutLocked(ctx, bet, multiplier); err != nil {
			logger.Error(ctx).Err(err).
				Str("bet_id", bet.BetID).
				Int64("user_id", bet.UserID).
				Msg("aviator: auto cashout failed")
		}
	}
}

// crashLocked ends the round: honours auto-cashout targets below the crash
// point, settles every remaining active bet as lost, reveals the seed and
// publishes the updated history. Caller holds mu with crashing latched.
func (e *Engine) crashLocked(ctx context.Context, now time.Time) {
	round := e.round

	// Targets strictly below the crash point were reachable during flight;
	// a slow tick must not turn them into losses.
	e.autoCashoutsLocked(ctx, round.CrashPoint, true)

	for _, bet := range e.betOrder {
		if bet.Status != domain.BetActive {
			continue
		}
		bet.Status = domain.BetLost
		if e.repo != nil {
			if err := e.repo.UpdateBet(ctx, bet); err != nil {
				logger.Error(ctx).Err(err).Str("bet_id", bet.BetID).Msg("aviator: persist bet failed")
			}
		}
	}

	round.Status = domain.RoundCrashed
	round.EndTime = &now
	if e.repo != nil {
		if err := e.repo.UpdateRound(ctx, round); err != nil {
			logger.Error(ctx).Err(err).Str("round_id", round.RoundID).Msg("aviator: persist round failed")
		}
	}

	e.history = append([]domain.HistoryEntry{{
		RoundID:    round.RoundID,
		CrashPoint: round.CrashPoint,
		Hash:       round.Hash,
		ServerSeed: round.ServerSeed,
	}}, e.history...)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[:e.cfg.HistorySize]
	}
	history := make([]domain.HistoryEntry, len(e.history))
	copy(history, e.history)

	logger.Info(ctx).
		Str("round_id", round.RoundID).
		Float64("crash_point", round.CrashPoint).
		Int("bets", len(e.betOrder)).
		Msg("aviator: crashed")

	e.gateway.Broadcast(Room, "game_state", map[string]interface{}{
		"phase":       string(domain.RoundCrashed),
		"round_id":    round.RoundID,
		"crash_point": round.CrashPoint,
		"hash":        round.Hash,
		"server_seed": round.ServerSeed,
		"client_seed": round.ClientSeed,
	})
	e.gateway.Broadcast(Room, "history", history)
}

// PlaceBet accepts a wager during the waiting phase. The debit and the bet
// record succeed or fail together: a wallet rejection leaves no bet behind.
func (e *Engine) PlaceBet(ctx context.Context, userID int64, username string, amountCents int64, betNumber int, autoCashout float64) (*domain.CrashBet, int64, error) {
	if amountCents <= 0 {
		return nil, 0, domain.ErrInvalidBet
	}
	if betNumber < 1 || betNumber > e.cfg.MaxBetsPerUser {
		return nil, 0, domain.ErrInvalidBet
	}
	if autoCashout != 0 && autoCashout <= 1.0 {
		return nil, 0, domain.ErrInvalidBet
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.round
	if round == nil || round.Status != domain.RoundWaiting {
		return nil, 0, domain.ErrPhaseViolation
	}

	key := betKey(userID, betNumber)
	if _, taken := e.bets[key]; taken {
		return nil, 0, domain.ErrBetLimit
	}
	userBets := 0
	for _, b := range e.betOrder {
		if b.UserID == userID {
			userBets++
		}
	}
	if userBets >= e.cfg.MaxBetsPerUser {
		return nil, 0, domain.ErrBetLimit
	}

	result, err := e.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      userID,
		Type:        string(walletdomain.TypeGameLoss),
		AmountCents: amountCents,
		Description: "Aviator bet",
		Metadata: map[string]interface{}{
			"game":       "aviator",
			"round_id":   round.RoundID,
			"bet_number": betNumber,
		},
	})
	if err != nil {
		return nil, 0, err
	}

	bet := &domain.CrashBet{
		BetID:       domain.NewBetID(),
		RoundID:     round.RoundID,
		UserID:      userID,
		Username:    username,
		BetNumber:   betNumber,
		AmountCents: amountCents,
		AutoCashout: autoCashout,
		Status:      domain.BetActive,
		CreatedAt:   time.Now(),
	}
	e.bets[key] = bet
	e.betOrder = append(e.betOrder, bet)

	if e.repo != nil {
		if err := e.repo.CreateBet(ctx, bet); err != nil {
			logger.Error(ctx).Err(err).Str("bet_id", bet.BetID).Msg("aviator: persist bet failed")
		}
	}

	e.gateway.Broadcast(Room, "new_bet", map[string]interface{}{
		"username":   username,
		"amount":     money.Format(amountCents),
		"bet_number": betNumber,
	})

	return bet, result.NewBalanceCents, nil
}

// CashOut settles one active bet at the current multiplier. A client-reported
// multiplier within the lag tolerance below the server value is honoured.
func (e *Engine) CashOut(ctx context.Context, userID int64, betNumber int, clientMultiplier float64) (*domain.CrashBet, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.round
	if round == nil || round.Status != domain.RoundFlying {
		return nil, 0, domain.ErrPhaseViolation
	}
	if e.crashing {
		return nil, 0, domain.ErrAlreadyCrashed
	}

	elapsedMs := time.Since(e.startTime).Milliseconds()
	mServer := fairness.RoundMultiplier(fairness.Multiplier(elapsedMs, e.cfg.GrowthRate), 2)

	chosen := mServer
	if clientMultiplier > 0 {
		gap := mServer - clientMultiplier
		if gap > 0 && gap <= lagTolerance {
			chosen = clientMultiplier
		}
	}

	if chosen >= round.CrashPoint {
		return nil, 0, domain.ErrAlreadyCrashed
	}

	bet, ok := e.bets[betKey(userID, betNumber)]
	if !ok {
		return nil, 0, domain.ErrNoSuchBet
	}
	if bet.Settled() {
		return nil, 0, domain.ErrAlreadySettled
	}

	newBalance, err := e.settleCashoutLocked(ctx, bet, fairness.RoundMultiplier(chosen, 2))
	if err != nil {
		return nil, 0, err
	}
	return bet, newBalance, nil
}

// settleCashoutLocked marks the bet cashed out and credits amount*multiplier.
// The bet flips to cashed_out before the wallet call so a concurrent settle
// sees it as terminal; a wallet failure rolls the flip back. Caller holds mu.
func (e *Engine) settleCashoutLocked(ctx context.Context, bet *domain.CrashBet, multiplier float64) (int64, error) {
	payout := money.MulMultiplier(bet.AmountCents, decimal.NewFromFloat(multiplier))

	bet.Status = domain.BetCashedOut
	bet.CashoutMultiplier = multiplier
	bet.ProfitCents = payout - bet.AmountCents

	result, err := e.wallet.ProcessTransaction(ctx, service.TransactionRequest{
		UserID:      bet.UserID,
		Type:        string(walletdomain.TypeGameWin),
		AmountCents: payout,
		Description: fmt.Sprintf("Aviator cashout @ %.2fx", multiplier),
		Metadata: map[string]interface{}{
			"game":       "aviator",
			"round_id":   bet.RoundID,
			"bet_id":     bet.BetID,
			"multiplier": multiplier,
		},
	})
	if err != nil {
		bet.Status = domain.BetActive
		bet.CashoutMultiplier = 0
		bet.ProfitCents = 0
		return 0, err
	}

	if e.repo != nil {
		if err := e.repo.UpdateBet(ctx, bet); err != nil {
			logger.Error(ctx).Err(err).Str("bet_id", bet.BetID).Msg("aviator: persist bet failed")
		}
	}

	e.gateway.Broadcast(Room, "player_cashout", map[string]interface{}{
		"username":   bet.Username,
		"multiplier": multiplier,
		"profit":     money.Format(bet.ProfitCents),
	})

	return result.NewBalanceCents, nil
}

// Snapshot is the authoritative state sent to a connection on join.
type Snapshot struct {
	Phase      string                 `json:"phase"`
	RoundID    string                 `json:"round_id"`
	Hash       string                 `json:"hash"`
	Countdown  float64                `json:"countdown,omitempty"`
	Elapsed    int64                  `json:"elapsed,omitempty"`
	Multiplier float64                `json:"multiplier,omitempty"`
	CrashPoint float64                `json:"crash_point,omitempty"`
	ServerSeed string                 `json:"server_seed,omitempty"`
	Bets       []SnapshotBet         `json:"bets"`
	History    []domain.HistoryEntry `json:"history"`
}

// SnapshotBet is the public view of one bet in the snapshot.
type SnapshotBet struct {
	Username          string  `json:"username"`
	Amount            string  `json:"amount"`
	BetNumber         int     `json:"bet_number"`
	Status            string  `json:"status"`
	CashoutMultiplier float64 `json:"cashout_multiplier,omitempty"`
}

// Snapshot returns the current authoritative state for snapshot-on-join.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Bets:    make([]SnapshotBet, 0, len(e.betOrder)),
		History: make([]domain.HistoryEntry, len(e.history)),
	}
	copy(snap.History, e.history)

	round := e.round
	if round == nil {
		return snap
	}
	snap.Phase = string(round.Status)
	snap.RoundID = round.RoundID
	snap.Hash = round.Hash

	switch round.Status {
	case domain.RoundWaiting:
		left := time.Until(e.waitingEnd).Seconds()
		if left < 0 {
			left = 0
		}
		snap.Countdown = left
	case domain.RoundFlying:
		elapsedMs := time.Since(e.startTime).Milliseconds()
		snap.Elapsed = elapsedMs
		snap.Multiplier = fairness.RoundMultiplier(fairness.Multiplier(elapsedMs, e.cfg.GrowthRate), 4)
	case domain.RoundCrashed:
		snap.CrashPoint = round.CrashPoint
		snap.ServerSeed = round.ServerSeed
	}

	for _, bet := range e.betOrder {
		snap.Bets = append(snap.Bets, SnapshotBet{
			Username:          bet.Username,
			Amount:            money.Format(bet.AmountCents),
			BetNumber:         bet.BetNumber,
			Status:            string(bet.Status),
			CashoutMultiplier: bet.CashoutMultiplier,
		})
	}
	return snap
}

func betKey(userID int64, betNumber int) string {
	return fmt.Sprintf("%d:%d", userID, betNumber)
}
