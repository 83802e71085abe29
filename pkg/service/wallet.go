package service

import "context"

// TransactionRequest describes a single ledger mutation. Amounts are in
// minor units (cents).
type TransactionRequest struct {
	UserID      int64
	Type        string // credit, debit, admin_grant, admin_deduct, game_win, game_loss, bonus
	AmountCents int64
	Description string
	Metadata    map[string]interface{}
}

// TransactionResult is returned on a successful ledger mutation.
type TransactionResult struct {
	TransactionID   string
	NewBalanceCents int64
}

// WalletService is the ledger surface used by the game engines. All
// mutations on one user are totally ordered.
type WalletService interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ProcessTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error)
}
