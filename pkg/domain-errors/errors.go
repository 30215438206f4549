// Package domainerrors provides coded errors for the consensus core.
//
// Every failure a caller can see carries a Code from the taxonomy below plus a
// human-readable message. Handlers translate codes to HTTP statuses; services
// and stores never return bare fmt errors across a package boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error by what the caller can do about it.
type Code string

const (
	// CodeValidation: malformed or missing input. Retryable with corrected input.
	CodeValidation Code = "validation"

	// CodeEligibility: the actor's identity tier or challenge status disqualifies
	// the action. Not retryable until the underlying identity state changes.
	CodeEligibility Code = "eligibility"

	// CodeEconomic: insufficient stake or balance. Retryable after acquiring funds.
	CodeEconomic Code = "economic"

	// CodeStateConflict: double-vote, double-settlement, or acting on a claim in
	// a terminal state. Never retryable for that (claim, actor) pair.
	CodeStateConflict Code = "state_conflict"

	// CodeCooldown: acting inside an active cooldown window. Retryable after the
	// window elapses.
	CodeCooldown Code = "cooldown"

	// CodeTiming: the timing condition for the operation is not (or no longer)
	// met. Retryable once it is.
	CodeTiming Code = "timing"

	// CodeNotFound: the referenced claim, vouch, or identity does not exist.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized: the caller is not the governance authority.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal: infrastructure failure. Nothing was mutated.
	CodeInternal Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, keeping err in the chain.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to the HTTP status the transport layer returns.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeEligibility:
		return http.StatusForbidden
	case CodeEconomic:
		return http.StatusPaymentRequired
	case CodeStateConflict:
		return http.StatusConflict
	case CodeCooldown:
		return http.StatusTooManyRequests
	case CodeTiming:
		return http.StatusPreconditionFailed
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
