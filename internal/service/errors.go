package service

import "errors"

// Business errors returned to handlers. Handlers map these to HTTP statuses;
// anything else surfaces as an internal error.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already in use")
	ErrInternalServer       = errors.New("internal server error")
	ErrInvalidInput         = errors.New("invalid input")
)
