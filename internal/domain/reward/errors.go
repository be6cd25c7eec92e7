package reward

import "errors"

var (
	// ErrInvalidAmount is returned when amount is not a positive decimal
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrAlreadyClaimed is returned when the (user, post, type) idempotency
	// key already has a transaction
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrInvalidClaimType is returned when a claim names a non-claimable type
	ErrInvalidClaimType = errors.New("invalid claim type")

	// ErrUserNotFound is returned when the user row does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCursor is returned for malformed pagination cursors
	ErrInvalidCursor = errors.New("invalid cursor")

	ErrInternal = errors.New("internal error")
)
