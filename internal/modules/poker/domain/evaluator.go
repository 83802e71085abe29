package domain

import (
	"fmt"
	"sort"
)

// Hand categories in strength order.
const (
	HighCard      = 0
	Pair          = 1
	TwoPair       = 2
	ThreeOfAKind  = 3
	Straight      = 4
	Flush         = 5
	FullHouse     = 6
	FourOfAKind   = 7
	StraightFlush = 8
)

var categoryNames = map[int]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
}

// HandRank is the evaluator's output. Comparing (Category, Tiebreak)
// lexicographically is a total order on hand strength.
type HandRank struct {
	Category int    `json:"category"`
	Tiebreak int64  `json:"tiebreak"`
	Name     string `json:"name"`
}

// Beats reports whether r is strictly stronger than other.
func (r HandRank) Beats(other HandRank) bool {
	if r.Category != other.Category {
		return r.Category > other.Category
	}
	return r.Tiebreak > other.Tiebreak
}

// Equal reports whether two hands tie exactly.
func (r HandRank) Equal(other HandRank) bool {
	return r.Category == other.Category && r.Tiebreak == other.Tiebreak
}

// EvaluateHand ranks the best five-card hand available from 5 to 7 cards.
// Pure function, no I/O.
func EvaluateHand(cards []Card) (HandRank, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandRank{}, fmt.Errorf("hand evaluation needs 5 to 7 cards, got %d", len(cards))
	}

	best := HandRank{Category: -1}
	combinations(cards, func(five []Card) {
		rank := evaluateFive(five)
		if best.Category < 0 || rank.Beats(best) {
			best = rank
		}
	})
	return best, nil
}

// combinations invokes fn for every 5-card subset.
func combinations(cards []Card, fn func([]Card)) {
	n := len(cards)
	if n == 5 {
		fn(cards)
		return
	}
	pick := make([]Card, 5)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == 5 {
			fn(pick)
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			pick[depth] = cards[i]
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// evaluateFive ranks exactly five cards.
func evaluateFive(cards []Card) HandRank {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh, straight := straightHigh(ranks)

	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	// group ranks by (count desc, rank desc)
	type group struct{ rank, count int }
	groups := make([]group, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, group{rank: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	var category int
	var keys []int
	switch {
	case straight && flush:
		category = StraightFlush
		keys = []int{straightHigh}
	case groups[0].count == 4:
		category = FourOfAKind
		keys = []int{groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		category = FullHouse
		keys = []int{groups[0].rank, groups[1].rank}
	case flush:
		category = Flush
		keys = ranks
	case straight:
		category = Straight
		keys = []int{straightHigh}
	case groups[0].count == 3:
		category = ThreeOfAKind
		keys = []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2 && groups[1].count == 2:
		category = TwoPair
		keys = []int{groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2:
		category = Pair
		keys = []int{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
	default:
		category = HighCard
		keys = ranks
	}

	return HandRank{
		Category: category,
		Tiebreak: packKeys(keys),
		Name:     categoryNames[category],
	}
}

// straightHigh reports whether the five distinct-sorted ranks form a
// straight and its high card. The wheel (A-2-3-4-5) counts with high 5.
func straightHigh(sortedDesc []int) (int, bool) {
	distinct := true
	for i := 1; i < 5; i++ {
		if sortedDesc[i] == sortedDesc[i-1] {
			distinct = false
			break
		}
	}
	if !distinct {
		return 0, false
	}
	if sortedDesc[0]-sortedDesc[4] == 4 {
		return sortedDesc[0], true
	}
	// wheel: A,5,4,3,2
	if sortedDesc[0] == 14 && sortedDesc[1] == 5 && sortedDesc[4] == 2 {
		return 5, true
	}
	return 0, false
}

// packKeys encodes significant ranks base-15, most significant first.
func packKeys(keys []int) int64 {
	var v int64
	for _, k := range keys {
		v = v*15 + int64(k)
	}
	return v
}
