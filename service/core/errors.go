package core

import "errors"

// Caller-facing error classes. Validation and not-found/invalid-signature
// conditions are reported synchronously and never crash the process.
var (
	// ErrValidation reports bad caller input to witnessing.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports verification of an unknown receipt ID. It is never
	// conflated with an invalid signature.
	ErrNotFound = errors.New("receipt not found")

	// ErrInvalidSignature reports a stored receipt whose signature no longer
	// verifies. This implies tampering or a bug and is surfaced distinctly.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrIDCollision reports a truncated-hash receipt ID that is already
	// assigned. The caller's input is fine; resubmitting at a later instant
	// yields a fresh hash and a fresh ID.
	ErrIDCollision = errors.New("receipt id collision")
)
