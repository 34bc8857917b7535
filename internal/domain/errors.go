package domain

import "errors"

// Expected outcomes of core operations. Callers match with errors.Is;
// none of these is a fault inside the core.
var (
	ErrSeatUnavailable   = errors.New("seat unavailable")
	ErrDuplicateBooking  = errors.New("duplicate booking")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrAlreadyFull means a release would push available seats past
	// capacity. It indicates a caller bug (double release) and must be
	// surfaced, never clamped.
	ErrAlreadyFull = errors.New("seats already at capacity")

	ErrConfiguration = errors.New("configuration error")
)
