package domain

import "context"

// HistoryRepository keeps the rolling feed of settled rounds. Backed by
// Redis so the feed survives process restarts.
type HistoryRepository interface {
	Push(ctx context.Context, entry HistoryEntry, keep int) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}
