package wallet

import (
	"context"
	"sync"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/wallet/domain"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
)

// MockService implements service.WalletService in memory. It keeps the
// ledger invariants (insufficient-funds rejection, transaction log) so
// engine tests can assert exact balances and settlement counts.
type MockService struct {
	balances     map[int64]int64
	transactions map[int64][]*domain.Transaction
	mu           sync.RWMutex
}

// NewMockService creates a new mock wallet service.
func NewMockService() *MockService {
	return &MockService{
		balances:     make(map[int64]int64),
		transactions: make(map[int64][]*domain.Transaction),
	}
}

// SetBalance sets a user's balance (test setup).
func (s *MockService) SetBalance(userID, balanceCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balanceCents
}

// GetBalance returns the user's balance.
func (s *MockService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[userID], nil
}

// Transactions returns the recorded transactions for a user (test assertions).
func (s *MockService) Transactions(userID int64) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Transaction, len(s.transactions[userID]))
	copy(out, s.transactions[userID])
	return out
}

// ProcessTransaction applies one mutation with the same semantics as the
// real ledger.
func (s *MockService) ProcessTransaction(ctx context.Context, req service.TransactionRequest) (service.TransactionResult, error) {
	if req.AmountCents <= 0 {
		return service.TransactionResult{}, domain.ErrInvalidAmount
	}
	txType := domain.Type(req.Type)
	if !txType.Valid() {
		return service.TransactionResult{}, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[req.UserID]
	var newBalance int64
	if txType.IsCredit() {
		newBalance = balance + req.AmountCents
	} else {
		if balance < req.AmountCents {
			return service.TransactionResult{}, domain.ErrInsufficientFunds
		}
		newBalance = balance - req.AmountCents
	}
	s.balances[req.UserID] = newBalance

	tx := domain.NewTransaction(req.UserID, txType, req.AmountCents, req.Description, req.Metadata)
	tx.BalanceAfterCents = newBalance
	s.transactions[req.UserID] = append(s.transactions[req.UserID], tx)

	return service.TransactionResult{
		TransactionID:   tx.TransactionID,
		NewBalanceCents: newBalance,
	}, nil
}
