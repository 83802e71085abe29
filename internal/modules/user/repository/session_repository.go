package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/user/domain"
	"gorm.io/gorm"
)

// SessionRepository handles session data persistence.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetBySessionID retrieves a session by session ID.
func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Update updates a session's token and expiry.
func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if err := r.db.WithContext(ctx).Model(session).Updates(map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Delete deletes a session.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&domain.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByToken deletes sessions by token.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session by token: %w", err)
	}
	return nil
}

// DeleteExpired deletes expired sessions.
func (r *SessionRepository) DeleteExpired(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&domain.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
