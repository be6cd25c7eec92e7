package withdrawal

import "errors"

var (
	// ErrInsufficientBalance is returned when the user's off-chain balance
	// cannot cover the requested amount
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAmountOutOfBounds is returned when amount is outside the configured
	// min/max withdrawal bounds
	ErrAmountOutOfBounds = errors.New("amount out of withdrawal bounds")

	// ErrNoWalletLinked is returned when neither the request nor the account
	// carries a settlement address
	ErrNoWalletLinked = errors.New("no wallet linked")

	// ErrInvalidAmount is returned when amount is not a positive decimal
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInvalidAddress is returned for malformed or bad-checksum addresses
	ErrInvalidAddress = errors.New("invalid wallet address")

	ErrInternal = errors.New("internal error")
)
