// Package common defines shared constants and sentinel errors used across
// the beyond directory service. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorConflict marks a natural-key collision with a divergent payload,
	// e.g. re-registering a user name under a different public key.
	ErrorConflict = errors.New("conflict")

	// Authentication errors. Each precondition failure is its own value so
	// diagnostics can tell them apart; externally they all read as
	// "not authenticated".
	ErrorMissingSignature     = errors.New("missing signature header")
	ErrorMissingTimestamp     = errors.New("missing timestamp header")
	ErrorTimestampOutOfWindow = errors.New("timestamp out of window")
	ErrorSignatureMismatch    = errors.New("signature mismatch")

	// Request/service-level errors.
	ErrorMalformed   = errors.New("malformed request")
	ErrorUnavailable = errors.New("not available")
	ErrorInternal    = errors.New("internal error")
)

// IsAuthFailure reports whether err is one of the authentication-class
// failures. The passport write path only falls back from owner to invitee
// authentication when this returns true; internal errors during verification
// must not be mistaken for a wrong identity.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrorMissingSignature) ||
		errors.Is(err, ErrorMissingTimestamp) ||
		errors.Is(err, ErrorTimestampOutOfWindow) ||
		errors.Is(err, ErrorSignatureMismatch)
}
