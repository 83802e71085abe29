// Package http exposes the dice game as a REST endpoint.
package http

import (
	"errors"
	"net/http"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/dice/usecase"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/gin-gonic/gin"
)

// Handler handles dice HTTP requests.
type Handler struct {
	uc *usecase.DiceUseCase
}

// NewHandler creates a new dice handler.
func NewHandler(uc *usecase.DiceUseCase) *Handler {
	return &Handler{uc: uc}
}

// RegisterRoutes mounts the dice routes behind the given auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	r.POST("/play", auth, h.Play)
}

type playRequest struct {
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	Target     float64 `json:"target" binding:"required"`
	Direction  string  `json:"direction" binding:"required,oneof=over under"`
	ClientSeed string  `json:"clientSeed"`
}

// Play handles POST /api/dice/play.
func (h *Handler) Play(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("user_id")
	result, err := h.uc.Play(c.Request.Context(), userID, money.ToCentsFloat(req.Amount), req.Target, req.Direction == "over", req.ClientSeed)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidBet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, walletdomain.ErrInsufficientFunds):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient funds"})
		default:
			logger.Error(c.Request.Context()).Err(err).
				Int64("user_id", userID).
				Msg("dice: play failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roll":        result.Roll,
		"target":      result.Target,
		"direction":   req.Direction,
		"win":         result.Win,
		"multiplier":  result.Multiplier,
		"payout":      money.Format(result.PayoutCents),
		"new_balance": money.Format(result.NewBalanceCents),
		"server_seed": result.ServerSeed,
		"hash":        result.Hash,
		"client_seed": result.ClientSeed,
	})
}
