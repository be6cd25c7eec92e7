package user

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidAddress = errors.New("invalid wallet address")
)
