package models

import "errors"

var (
	// ErrNotFound covers both missing rows and rows owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when a video cannot be segmented.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is returned when a video already has an active indexing job.
	ErrConflict = errors.New("indexing already in progress")
	// ErrInvalidArgument rejects malformed search requests.
	ErrInvalidArgument = errors.New("invalid argument")
)
