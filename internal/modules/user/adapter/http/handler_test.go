package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/user/domain"
	walletdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserService struct {
	domain.UserUseCase
	profile *domain.User
}

func (s *stubUserService) ValidateToken(ctx context.Context, token string) (int64, string, time.Time, error) {
	return s.profile.UserID, s.profile.Username, time.Now().Add(time.Hour), nil
}

func (s *stubUserService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.profile, nil
}

type stubWallet struct{}

func (stubWallet) ClaimDailyBonus(ctx context.Context, userID int64) (service.TransactionResult, error) {
	return service.TransactionResult{}, nil
}

func (stubWallet) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*walletdomain.Transaction, error) {
	return nil, nil
}

func TestProfileResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &stubUserService{profile: &domain.User{
		UserID:      7,
		Username:    "alice",
		Email:       "alice@example.com",
		CashCents:   123456,
		GamesPlayed: 3_000_000_000, // beyond int32
		GamesWon:    2_500_000_000,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	r := gin.New()
	api := r.Group("/api/users")
	NewHandler(svc, stubWallet{}).RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID      int64  `json:"user_id"`
		Balance     string `json:"balance"`
		GamesPlayed int64  `json:"games_played"`
		GamesWon    int64  `json:"games_won"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.UserID)
	assert.Equal(t, "1234.56", body.Balance)
	assert.Equal(t, int64(3_000_000_000), body.GamesPlayed)
	assert.Equal(t, int64(2_500_000_000), body.GamesWon)
}
