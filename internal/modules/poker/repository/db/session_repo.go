// Package db persists poker table sessions on gorm/Postgres.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	"gorm.io/gorm"
)

// SessionRepository implements domain.SessionRepository.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new poker session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts the session row at buy-in time.
func (r *SessionRepository) Create(ctx context.Context, session *domain.GameSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create poker session: %w", err)
	}
	return nil
}

// End stamps the cash-out amount and end time.
func (r *SessionRepository) End(ctx context.Context, sessionID string, cashOutCents int64, endedAt time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.GameSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"cash_out_cents": cashOutCents,
			"ended_at":       endedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to end poker session: %w", err)
	}
	return nil
}
