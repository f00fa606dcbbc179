package biz

import "errors"

// Engine error taxonomy. Connector failures are recovered per query at the
// dispatch layer; everything here surfaces to the caller immediately.
var (
	// ErrValidation marks malformed input (missing justification, empty
	// query set, unknown execution mode).
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition marks state machine misuse, e.g. canceling a
	// terminal run or submitting a run twice.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrencyLimitExceeded rejects run submissions over the
	// per-tenant or per-user ceiling, before any state mutation.
	ErrConcurrencyLimitExceeded = errors.New("concurrency limit exceeded")
)
