package domain

import "errors"

var (
	// ErrUserNotFound means the ledger has no account for the user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientFunds means a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount means the amount is zero, negative, or malformed.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrStoreUnavailable means the durable store rejected the operation.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrBonusNotReady means the daily bonus cooldown has not elapsed.
	ErrBonusNotReady = errors.New("bonus cooldown has not elapsed")
)
