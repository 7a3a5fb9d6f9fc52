package service

import "errors"

// Sentinel kinds for coordinator errors.
var (
	// ErrDuplicateSubmission rejects a replayed idempotency token before
	// any write happens.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
