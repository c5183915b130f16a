package services

import (
	"errors"
	"strings"
)

// Sentinel errors shared across services and the HTTP error mapping.
var (
	// Not found
	ErrMatchNotFound = errors.New("match not found")
	ErrTeamNotFound  = errors.New("team not found")
	ErrGameNotFound  = errors.New("game not found")

	// State conflicts: the operation is incompatible with the current
	// lifecycle state, distinct from malformed input.
	ErrBpLocked          = errors.New("ban/pick is locked")
	ErrNoDraftToPublish  = errors.New("no ban/pick draft to publish")
	ErrNothingPublished  = errors.New("no published data to roll back")
	ErrNoEarlierSnapshot = errors.New("no earlier snapshot to roll back to")

	ErrLogoStorageNotConfigured = errors.New("logo storage is not configured")
)

// ValidationError rejects an input before any mutation and carries the
// complete list of violated constraints, not just the first.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

func newValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}
