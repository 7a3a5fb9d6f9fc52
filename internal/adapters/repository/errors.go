package repository

import "errors"

// Sentinel kinds for ledger and aggregate errors.
var (
	// ErrNotFound means the query matched no record. Absence of data is
	// not an error on the read path; callers translate as needed.
	ErrNotFound = errors.New("record not found")

	// ErrAccountNotFound means the referenced account has no backing row.
	// For an authenticated caller this is an internal consistency fault.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidRecord rejects an append that violates a ledger
	// invariant (negative score, missing song id, ...).
	ErrInvalidRecord = errors.New("invalid score record")

	// ErrUnavailable wraps transient storage failures. The caller may
	// retry the whole submission.
	ErrUnavailable = errors.New("storage unavailable")
)
