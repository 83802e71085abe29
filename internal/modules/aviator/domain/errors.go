package domain

import "errors"

var (
	// ErrPhaseViolation is returned when an input arrives in the wrong phase,
	// such as a bet outside the waiting window.
	ErrPhaseViolation = errors.New("round is not accepting this action")
	// ErrAlreadyCrashed is returned when a cashout multiplier would meet or
	// exceed the crash point.
	ErrAlreadyCrashed = errors.New("round already crashed")
	// ErrNoSuchBet is returned when the user has no bet in the given slot.
	ErrNoSuchBet = errors.New("no such bet")
	// ErrAlreadySettled guards against double settlement of one bet.
	ErrAlreadySettled = errors.New("bet already settled")
	// ErrBetLimit is returned when the user already holds the maximum number
	// of bets for the round or the slot is taken.
	ErrBetLimit = errors.New("bet slot unavailable")
	// ErrInvalidBet is returned for out-of-range amounts or bet numbers.
	ErrInvalidBet = errors.New("invalid bet")
)
