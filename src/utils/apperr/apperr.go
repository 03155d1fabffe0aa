// Package apperr defines the error taxonomy shared by the record
// store, the anchoring service, the mint gate and the REST gateway.
// Duplicate anchors and duplicate mints are success variants, not
// errors, and don't appear here.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// Unknown record id
	ErrNotFound = errors.New("record not found")

	// A concurrent mint for the same proof of reserve is in flight
	ErrConflict = errors.New("a mint for this proof of reserve is already in progress")

	// Permissioned ledger write failed after bounded retries
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// Chain RPC failed after bounded retries, before broadcast
	ErrChainUnavailable = errors.New("chain unavailable")

	// Terminal for this attempt, the fingerprint is released for retry
	ErrMintFailed = errors.New("mint failed")

	// Missing or invalid credentials
	ErrUnauthorized = errors.New("missing or invalid credentials")

	// Valid credentials without admin rights on an operator endpoint
	ErrForbidden = errors.New("admin access required")
)

// ValidationError carries the field-level reason so the client can
// render a precise message instead of a generic failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (self *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", self.Field, self.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
