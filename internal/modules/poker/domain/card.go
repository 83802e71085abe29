// Package domain defines the poker room's models: cards, the hand
// evaluator, seats and the per-room state machine's types.
package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Suit is one of the four card suits.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Card is one playing card. Rank runs 2..14 with Ace high (14); the
// evaluator treats the Ace as 1 for the wheel straight.
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

var rankNames = map[int]string{
	2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7", 8: "8", 9: "9",
	10: "10", 11: "J", 12: "Q", 13: "K", 14: "A",
}

// String renders the card for logs, e.g. "A♠".
func (c Card) String() string {
	suits := map[Suit]string{Spades: "♠", Hearts: "♥", Diamonds: "♦", Clubs: "♣"}
	return fmt.Sprintf("%s%s", rankNames[c.Rank], suits[c.Suit])
}

// Deck is an ordered permutation of the 52 cards; draws come from the tail.
type Deck struct {
	cards []Card
}

// NewDeck builds a full deck shuffled with a CSPRNG Fisher-Yates. The house
// must not deal from a predictable generator.
func NewDeck() (*Deck, error) {
	cards := make([]Card, 0, 52)
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		for rank := 2; rank <= 14; rank++ {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}

	for i := len(cards) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("failed to shuffle deck: %w", err)
		}
		j := int(n.Int64())
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}, nil
}

// NewOrderedDeck builds a deck with the given card order, for deterministic
// tests. Draws still come from the tail.
func NewOrderedDeck(cards []Card) *Deck {
	out := make([]Card, len(cards))
	copy(out, cards)
	return &Deck{cards: out}
}

// Draw removes and returns the top (tail) card.
func (d *Deck) Draw() Card {
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
