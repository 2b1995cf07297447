package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotJoinable = errors.New("session is not joinable")
	ErrSessionFull        = errors.New("session is full")
	ErrInvalidTransition  = errors.New("invalid session status transition")
)
