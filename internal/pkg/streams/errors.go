package streams

import "errors"

var (
	// ErrNotFound is returned when the referenced stream does not exist.
	ErrNotFound = errors.New("stream not found")
	// ErrNotAuthorized is returned when a caller attempts an author-only
	// action on someone else's stream.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidState is returned when an action is illegal for the stream's
	// current lifecycle state, e.g. joining a stream that is not live.
	ErrInvalidState = errors.New("invalid stream state")
	// ErrAccessDenied is returned when the gating check fails; the caller
	// has to purchase access first.
	ErrAccessDenied = errors.New("access denied - payment required")
	// ErrAlreadyJoined is returned when the caller already holds an open
	// participant record for the stream.
	ErrAlreadyJoined = errors.New("already joined")
)
