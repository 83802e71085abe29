package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Crash point constants. The edge and cap are product constants surfaced
// through config; these are the fallback defaults.
const (
	DefaultHouseEdge     = 0.04
	DefaultMaxMultiplier = 1000.0
	// GrowthRate is the multiplier growth exponent per elapsed millisecond:
	// m(t) = e^(GrowthRate * t_ms).
	GrowthRate = 0.00006
)

// Side is a coinflip outcome.
type Side string

const (
	SideHeads Side = "heads"
	SideTails Side = "tails"
)

// hmacSum computes HMAC-SHA-256(key=serverSeed, msg).
func hmacSum(serverSeed, message string) []byte {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	return h.Sum(nil)
}

// CrashPoint derives the crash multiplier from the seed pair.
//
// h = first 32 bits of HMAC-SHA-256(serverSeed, clientSeed); E = 2^32;
// point = max(1.00, min((100·E − h)/(E − h) · (1 − edge)/100, maxMultiplier)),
// floored to two decimals.
func CrashPoint(serverSeed, clientSeed string, houseEdge, maxMultiplier float64) float64 {
	sum := hmacSum(serverSeed, clientSeed)
	h := float64(binary.BigEndian.Uint32(sum[:4]))
	e := math.Pow(2, 32)

	point := (100*e - h) / (e - h) * (1 - houseEdge) / 100
	point = math.Floor(point*100) / 100

	if point < 1.0 {
		point = 1.0
	}
	if point > maxMultiplier {
		point = maxMultiplier
	}
	return point
}

// Multiplier computes the flight multiplier after elapsedMs milliseconds,
// always from the wall clock, never by incrementing. growthRate is the
// exponent coefficient per elapsed millisecond.
func Multiplier(elapsedMs int64, growthRate float64) float64 {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	return math.Exp(growthRate * float64(elapsedMs))
}

// RoundMultiplier truncates a multiplier to the given decimal places
// (2 for settlement, 4 for tick broadcasts).
func RoundMultiplier(m float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Floor(m*shift) / shift
}

// CoinFlip derives heads or tails from the seed pair: the low bit of the
// hashed seeds decides.
func CoinFlip(serverSeed, clientSeed string) Side {
	sum := sha256.Sum256([]byte(serverSeed + ":" + clientSeed))
	if sum[len(sum)-1]&1 == 0 {
		return SideHeads
	}
	return SideTails
}

// DiceRoll derives a uniform roll in [0.00, 99.99] from the seed pair and
// a per-bet nonce. The bucket index uses the top 52 bits of the digest;
// 32 bits reduced mod 10000 would skew towards the low buckets.
func DiceRoll(serverSeed, clientSeed string, nonce int64) float64 {
	sum := hmacSum(serverSeed, fmt.Sprintf("dice:%s:%d", clientSeed, nonce))
	v := binary.BigEndian.Uint64(sum[:8]) >> 12
	frac := float64(v) / float64(uint64(1)<<52)
	return math.Floor(frac*10000) / 100
}

// DiceWin reports whether a roll wins against the target.
func DiceWin(roll, target float64, isOver bool) bool {
	if isOver {
		return roll > target
	}
	return roll < target
}

// DicePayoutMultiplier returns the fair payout multiplier for the win
// chance implied by target/isOver, minus the house edge.
func DicePayoutMultiplier(target float64, isOver bool, houseEdge float64) float64 {
	var winChance float64
	if isOver {
		winChance = (99.99 - target) / 100
	} else {
		winChance = target / 100
	}
	if winChance <= 0 {
		return 0
	}
	return math.Floor((1/winChance)*(1-houseEdge)*10000) / 10000
}
