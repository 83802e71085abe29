// Package db persists crash rounds and bets on gorm/Postgres.
package db

import (
	"context"
	"fmt"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/domain"
	"gorm.io/gorm"
)

// RoundRepository implements domain.RoundRepository.
type RoundRepository struct {
	db *gorm.DB
}

// NewRoundRepository creates a new crash round repository.
func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// CreateRound inserts a new round row.
func (r *RoundRepository) CreateRound(ctx context.Context, round *domain.CrashRound) error {
	if err := r.db.WithContext(ctx).Create(round).Error; err != nil {
		return fmt.Errorf("failed to create crash round: %w", err)
	}
	return nil
}

// UpdateRound saves the round's current state.
func (r *RoundRepository) UpdateRound(ctx context.Context, round *domain.CrashRound) error {
	if err := r.db.WithContext(ctx).Save(round).Error; err != nil {
		return fmt.Errorf("failed to update crash round: %w", err)
	}
	return nil
}

// CreateBet inserts a new bet row.
func (r *RoundRepository) CreateBet(ctx context.Context, bet *domain.CrashBet) error {
	if err := r.db.WithContext(ctx).Create(bet).Error; err != nil {
		return fmt.Errorf("failed to create crash bet: %w", err)
	}
	return nil
}

// UpdateBet saves the bet's current state.
func (r *RoundRepository) UpdateBet(ctx context.Context, bet *domain.CrashBet) error {
	if err := r.db.WithContext(ctx).Save(bet).Error; err != nil {
		return fmt.Errorf("failed to update crash bet: %w", err)
	}
	return nil
}

// RecentRounds returns the latest crashed rounds, newest first.
func (r *RoundRepository) RecentRounds(ctx context.Context, limit int) ([]*domain.CrashRound, error) {
	var rounds []*domain.CrashRound
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.RoundCrashed).
		Order("created_at DESC").
		Limit(limit).
		Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to list crash rounds: %w", err)
	}
	return rounds, nil
}
