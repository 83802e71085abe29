// Package local adapts the user use case to the in-process service interface.
package local

import (
	"context"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/user/usecase"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
)

// Handler is the local adapter for the user service. It implements
// service.UserService for in-process callers (gateway).
type Handler struct {
	userUC *usecase.UserUseCase
}

// NewHandler creates a new local user handler.
func NewHandler(userUC *usecase.UserUseCase) *Handler {
	return &Handler{userUC: userUC}
}

// ValidateToken validates a bearer token.
func (h *Handler) ValidateToken(ctx context.Context, token string) (int64, string, time.Time, error) {
	userID, username, expiresAt, err := h.userUC.ValidateToken(ctx, token)
	if err != nil {
		logger.Debug(ctx).Err(err).Msg("token validation failed")
		return 0, "", time.Time{}, err
	}
	return userID, username, expiresAt, nil
}
