package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID does not resolve to a live session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidAnswer indicates an answer payload with an out-of-range index
	// or a shape that does not match the question's kind.
	ErrInvalidAnswer = errors.New("invalid answer payload")
)
