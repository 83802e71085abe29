// Package domain defines the user module's models.
package domain

import (
	"context"
	"time"
)

// User represents a player account. CashCents is owned by the wallet ledger;
// no other module writes it.
type User struct {
	UserID         int64      `json:"user_id" gorm:"primaryKey;column:user_id;autoIncrement"`
	Username       string     `json:"username" gorm:"column:username;unique;not null"`
	PasswordHash   string     `json:"-" gorm:"column:password_hash;not null"`
	Email          string     `json:"email" gorm:"column:email;unique;not null"`
	Status         int        `json:"status" gorm:"column:status;default:1"`
	CashCents      int64      `json:"cash_cents" gorm:"column:cash_cents;default:0;not null"`
	GamesPlayed    int64      `json:"games_played" gorm:"column:games_played;default:0"`
	GamesWon       int64      `json:"games_won" gorm:"column:games_won;default:0"`
	LastBonusClaim *time.Time `json:"last_bonus_claim,omitempty" gorm:"column:last_bonus_claim"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
}

// TableName sets the table name for gorm.
func (User) TableName() string { return "users" }

// Session represents a login session.
type Session struct {
	SessionID string    `json:"session_id" gorm:"primaryKey;column:session_id"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;index"`
	Token     string    `json:"token" gorm:"column:token;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// User status constants.
const (
	UserStatusActive    = 1
	UserStatusSuspended = 2
	UserStatusBanned    = 3
)

// IsActive checks whether the user may log in and play.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// UserUseCase is the interface used by the HTTP and local adapters.
type UserUseCase interface {
	Register(ctx context.Context, username, password, email string) (int64, error)
	Login(ctx context.Context, username, password string) (int64, string, string, time.Time, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (int64, string, time.Time, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, time.Time, error)
	GetProfile(ctx context.Context, userID int64) (*User, error)
}
