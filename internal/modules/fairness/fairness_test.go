package fairness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPairCommitReveal(t *testing.T) {
	pair, err := NewSeedPair()
	require.NoError(t, err)

	assert.Len(t, pair.ServerSeed, 64)
	assert.Len(t, pair.Hash, 64)
	assert.True(t, Verify(pair.ServerSeed, pair.Hash))
	assert.False(t, Verify(pair.ServerSeed+"00", pair.Hash))
	assert.False(t, Verify(pair.ServerSeed, HashSeed("other")))
}

func TestSeedPairsAreUnique(t *testing.T) {
	a, err := NewSeedPair()
	require.NoError(t, err)
	b, err := NewSeedPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.ServerSeed, b.ServerSeed)
}

func TestCrashPointDeterministic(t *testing.T) {
	p1 := CrashPoint("server-seed-1", "client-seed-1", DefaultHouseEdge, DefaultMaxMultiplier)
	p2 := CrashPoint("server-seed-1", "client-seed-1", DefaultHouseEdge, DefaultMaxMultiplier)
	p3 := CrashPoint("server-seed-1", "client-seed-2", DefaultHouseEdge, DefaultMaxMultiplier)

	assert.Equal(t, p1, p2)
	assert.NotEqual(t, p1, p3)
}

func TestCrashPointBounds(t *testing.T) {
	seeds := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, s := range seeds {
		for _, c := range seeds {
			p := CrashPoint(s, c, DefaultHouseEdge, DefaultMaxMultiplier)
			assert.GreaterOrEqual(t, p, 1.0, "seed %s/%s", s, c)
			assert.LessOrEqual(t, p, DefaultMaxMultiplier, "seed %s/%s", s, c)
			// two decimal places; compare in integer cents because the
			// floored float is not exactly representable
			cents := math.Round(p * 100)
			assert.InDelta(t, p, cents/100, 1e-9)
		}
	}
}

func TestCrashPointCapped(t *testing.T) {
	p := CrashPoint("server-seed-1", "client-seed-1", DefaultHouseEdge, 2.0)
	assert.LessOrEqual(t, p, 2.0)
}

func TestMultiplierGrowth(t *testing.T) {
	assert.Equal(t, 1.0, Multiplier(0, GrowthRate))
	assert.Equal(t, 1.0, Multiplier(-50, GrowthRate))

	// m(t) = e^(rate * t_ms): strictly increasing from the wall clock
	prev := Multiplier(0, GrowthRate)
	for ms := int64(100); ms <= 60000; ms += 100 {
		m := Multiplier(ms, GrowthRate)
		assert.Greater(t, m, prev)
		prev = m
	}

	assert.InDelta(t, math.Exp(0.00006*10000), Multiplier(10000, GrowthRate), 1e-12)

	// the growth rate is a curve parameter, not baked in
	assert.InDelta(t, math.Exp(0.00012*10000), Multiplier(10000, 0.00012), 1e-12)
}

func TestRoundMultiplier(t *testing.T) {
	assert.Equal(t, 1.23, RoundMultiplier(1.23999, 2))
	assert.Equal(t, 1.2399, RoundMultiplier(1.23999, 4))
	assert.Equal(t, 1.0, RoundMultiplier(1.0, 2))
}

func TestCoinFlipDeterministic(t *testing.T) {
	s1 := CoinFlip("server-seed-1", "client-seed-1")
	s2 := CoinFlip("server-seed-1", "client-seed-1")
	assert.Equal(t, s1, s2)
	assert.Contains(t, []Side{SideHeads, SideTails}, s1)
}

func TestCoinFlipBothSidesReachable(t *testing.T) {
	seen := map[Side]bool{}
	for i := 0; i < 64; i++ {
		pair, err := NewSeedPair()
		require.NoError(t, err)
		seen[CoinFlip(pair.ServerSeed, "public")] = true
		if seen[SideHeads] && seen[SideTails] {
			return
		}
	}
	t.Fatalf("only saw %v in 64 flips", seen)
}

func TestDiceRollRange(t *testing.T) {
	for nonce := int64(0); nonce < 500; nonce++ {
		roll := DiceRoll("server-seed-1", "client-seed-1", nonce)
		assert.GreaterOrEqual(t, roll, 0.0)
		assert.LessOrEqual(t, roll, 99.99)
		// whole number of hundredths
		cents := math.Round(roll * 100)
		assert.InDelta(t, roll, cents/100, 1e-9)
	}
	assert.Equal(t,
		DiceRoll("s", "c", 7),
		DiceRoll("s", "c", 7))
	assert.NotEqual(t,
		DiceRoll("s", "c", 7),
		DiceRoll("s", "c", 8))
}

func TestDiceWin(t *testing.T) {
	assert.True(t, DiceWin(75.00, 50.00, true))
	assert.False(t, DiceWin(25.00, 50.00, true))
	assert.False(t, DiceWin(50.00, 50.00, true))

	assert.True(t, DiceWin(25.00, 50.00, false))
	assert.False(t, DiceWin(75.00, 50.00, false))
	assert.False(t, DiceWin(50.00, 50.00, false))
}

func TestDicePayoutMultiplier(t *testing.T) {
	// roll-under 50 wins half the time; fair 2x minus 5% edge
	m := DicePayoutMultiplier(50.00, false, 0.05)
	assert.InDelta(t, 1.9, m, 0.0001)

	assert.Equal(t, 0.0, DicePayoutMultiplier(0, false, 0.05))
	assert.Equal(t, 0.0, DicePayoutMultiplier(99.99, true, 0.05))
}
