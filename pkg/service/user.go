package service

import (
	"context"
	"time"
)

// UserService exposes user operations needed by other modules.
type UserService interface {
	ValidateToken(ctx context.Context, token string) (int64, string, time.Time, error)
}
