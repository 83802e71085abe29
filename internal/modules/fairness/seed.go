// Package fairness implements the commit-reveal scheme and the deterministic
// outcome functions for every chance-based game. The server commits to
// SHA-256(serverSeed) before a round, reveals the seed afterwards, and any
// observer can recompute the outcome.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SeedPair is one round's server seed and its published commitment.
type SeedPair struct {
	ServerSeed string // hex, secret until the round ends
	Hash       string // SHA-256(ServerSeed), published at round creation
}

// NewSeedPair generates 32 bytes of cryptographic randomness and its
// commitment hash.
func NewSeedPair() (*SeedPair, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate server seed: %w", err)
	}
	serverSeed := hex.EncodeToString(b)
	return &SeedPair{
		ServerSeed: serverSeed,
		Hash:       HashSeed(serverSeed),
	}, nil
}

// HashSeed computes the commitment for a server seed.
func HashSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// Verify checks that a revealed seed matches its published commitment.
func Verify(serverSeed, hash string) bool {
	return HashSeed(serverSeed) == hash
}

// NewClientSeed generates a random public client seed for rounds where no
// player-supplied seed applies.
func NewClientSeed() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
