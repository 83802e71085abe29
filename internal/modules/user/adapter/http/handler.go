package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/user/domain"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/money"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/gin-gonic/gin"
)

// WalletAPI is the slice of the wallet module the account endpoints use.
type WalletAPI interface {
	ClaimDailyBonus(ctx context.Context, userID int64) (service.TransactionResult, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*walletdomain.Transaction, error)
}

// Handler handles HTTP requests for the account API.
type Handler struct {
	svc    domain.UserUseCase
	wallet WalletAPI
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc domain.UserUseCase, wallet WalletAPI) *Handler {
	return &Handler{
		svc:    svc,
		wallet: wallet,
	}
}

// RegisterRoutes registers all account routes to the given router group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.POST("/refresh", h.Refresh)

	authed := router.Group("")
	authed.Use(h.AuthMiddleware())
	authed.GET("/me", h.Profile)
	authed.POST("/bonus/claim", h.ClaimBonus)
	authed.GET("/transactions", h.Transactions)
}

// Server represents the account API HTTP server.
type Server struct {
	handler *Handler
	engine  *gin.Engine
	port    string
}

// NewServer creates a standalone HTTP server for the account API.
func NewServer(handler *Handler, port string) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())

	api := r.Group("/api")
	users := api.Group("/users")
	handler.RegisterRoutes(users)

	return &Server{
		handler: handler,
		engine:  r,
		port:    port,
	}
}

// Engine exposes the underlying gin engine so the monolith can run it with
// its own http.Server and shut it down gracefully.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return s.engine.Run(":" + s.port)
}

// AuthMiddleware validates the bearer token and stores the caller identity
// in the gin context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, username, _, err := h.svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn(c.Request.Context()).Err(err).Msg("Auth: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Set("username", username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if strings.HasPrefix(token, "Bearer ") {
		return token[7:]
	}
	return token
}

func callerID(c *gin.Context) int64 {
	v, _ := c.Get("user_id")
	id, _ := v.(int64)
	return id
}

// DTOs
type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type registerResponse struct {
	UserID  int64 `json:"user_id"`
	Success bool  `json:"success"`
}

type loginResponse struct {
	UserID       int64  `json:"user_id"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

type profileResponse struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Balance     string `json:"balance"`
	GamesPlayed int64  `json:"games_played"`
	GamesWon    int64  `json:"games_won"`
	CreatedAt   string `json:"created_at"`
}

type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
	Description   string `json:"description"`
	CreatedAt     string `json:"created_at"`
}

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("Register: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.svc.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		logger.Error(c.Request.Context()).Err(err).Str("username", req.Username).Msg("Register: failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info(c.Request.Context()).Int64("user_id", userID).Str("username", req.Username).Msg("Register: success")

	c.JSON(http.StatusOK, registerResponse{
		UserID:  userID,
		Success: true,
	})
}

// Login handles user login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("Login: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, token, refreshToken, expiresAt, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.Error(c.Request.Context()).Err(err).Str("username", req.Username).Msg("Login: failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	logger.Info(c.Request.Context()).Int64("user_id", userID).Str("username", req.Username).Msg("Login: success")

	c.JSON(http.StatusOK, loginResponse{
		UserID:       userID,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	})
}

// Logout handles user logout.
func (h *Handler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		logger.Warn(c.Request.Context()).Msg("Logout: missing token")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		logger.Error(c.Request.Context()).Err(err).Msg("Logout: failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, refreshToken, expiresAt, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("Refresh: failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	})
}

// Profile returns the caller's profile, including the ledger-owned balance.
func (h *Handler) Profile(c *gin.Context) {
	userID := callerID(c)

	user, err := h.svc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context()).Err(err).Int64("user_id", userID).Msg("Profile: failed")
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		Balance:     money.Format(user.CashCents),
		GamesPlayed: user.GamesPlayed,
		GamesWon:    user.GamesWon,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	})
}

// ClaimBonus applies the daily bonus if the cooldown has elapsed.
func (h *Handler) ClaimBonus(c *gin.Context) {
	userID := callerID(c)

	result, err := h.wallet.ClaimDailyBonus(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, walletdomain.ErrBonusNotReady) {
			c.JSON(http.StatusConflict, gin.H{"error": "bonus not ready"})
			return
		}
		logger.Error(c.Request.Context()).Err(err).Int64("user_id", userID).Msg("ClaimBonus: failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"transaction_id": result.TransactionID,
		"balance":        money.Format(result.NewBalanceCents),
	})
}

// Transactions returns a page of the caller's ledger history, newest first.
func (h *Handler) Transactions(c *gin.Context) {
	userID := callerID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.wallet.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error(c.Request.Context()).Err(err).Int64("user_id", userID).Msg("Transactions: failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			TransactionID: tx.TransactionID,
			Type:          string(tx.Type),
			Amount:        money.Format(tx.AmountCents),
			BalanceAfter:  money.Format(tx.BalanceAfterCents),
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"transactions": out})
}
