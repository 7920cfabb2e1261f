package domain

import "errors"

// Validation errors surfaced to the client that caused them. They never
// tear down a connection.
var (
	ErrEmptyBody     = errors.New("message body is empty")
	ErrSelfMessage   = errors.New("sender and receiver must be different participants")
	ErrInvalidStatus = errors.New("unknown message status")
)
