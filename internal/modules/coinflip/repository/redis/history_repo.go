// Package redis keeps the coinflip history feed in a capped Redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/domain"
	"github.com/redis/go-redis/v9"
)

const historyKey = "coinflip:history"

// HistoryRepository implements domain.HistoryRepository on Redis.
type HistoryRepository struct {
	client *redis.Client
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(client *redis.Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

// Push prepends one settled round and trims the feed to keep entries.
func (r *HistoryRepository) Push(ctx context.Context, entry domain.HistoryEntry, keep int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, int64(keep-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit settled rounds, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	raw, err := r.client.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
