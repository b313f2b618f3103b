package chaterrors

import "errors"

// Common errors
var (
	ErrValidation    = errors.New("invalid input")
	ErrBusy          = errors.New("another submission is in flight")
	ErrRejected      = errors.New("request rejected")
	ErrTransport     = errors.New("transport failed")
	ErrAuthRequired  = errors.New("authentication required")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrChatFull      = errors.New("chat is full")
	ErrRateLimited   = errors.New("rate limited")
	ErrClosed        = errors.New("session closed")
)
