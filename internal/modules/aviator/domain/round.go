// Package domain defines the crash game's models and invariants.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus is the lifecycle phase of a crash round.
type RoundStatus string

const (
	RoundWaiting RoundStatus = "waiting"
	RoundFlying  RoundStatus = "flying"
	RoundCrashed RoundStatus = "crashed"
)

// CrashRound is one provably-fair round. Immutable once crashed.
type CrashRound struct {
	RoundID    string      `json:"round_id" gorm:"primaryKey;column:round_id"`
	CrashPoint float64     `json:"crash_point" gorm:"column:crash_point;not null"`
	Status     RoundStatus `json:"status" gorm:"column:status;not null"`
	Hash       string      `json:"hash" gorm:"column:hash;not null"`
	ServerSeed string      `json:"server_seed" gorm:"column:server_seed;not null"`
	ClientSeed string      `json:"client_seed" gorm:"column:client_seed;not null"`
	StartTime  *time.Time  `json:"start_time,omitempty" gorm:"column:start_time"`
	EndTime    *time.Time  `json:"end_time,omitempty" gorm:"column:end_time"`
	CreatedAt  time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName sets the table name for gorm.
func (CrashRound) TableName() string { return "crash_rounds" }

// NewRoundID generates a round identifier.
func NewRoundID() string {
	return uuid.NewString()
}

// HistoryEntry is one revealed round in the public history feed.
type HistoryEntry struct {
	RoundID    string  `json:"round_id"`
	CrashPoint float64 `json:"crash_point"`
	Hash       string  `json:"hash"`
	ServerSeed string  `json:"server_seed"`
}
