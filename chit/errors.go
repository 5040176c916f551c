/*
errors.go - Error kinds for the chit-cycle engine

ERROR CATEGORIES:
  1. Validation - duplicate recipient, cycle already paid out, unknown
     member, malformed schedule input
  2. Config     - disbursal schedule missing an entry for a cycle
  3. Not found  - operation addressed at a nonexistent member/cycle/fund

None of these are retryable; the engine has no transient failure modes.

USAGE:
  if errors.Is(err, chit.ErrValidation) { ... }

  var verr *chit.ValidationError
  if errors.As(err, &verr) && verr.Code == chit.CodeDuplicateRecipient { ... }
*/
package chit

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")

	// ErrConfig means the fund's configuration cannot answer the question,
	// e.g. an explicit disbursal schedule with a gap.
	ErrConfig = errors.New("fund configuration error")

	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned by authorization capabilities guarding
	// destructive operations.
	ErrUnauthorized = errors.New("unauthorized")

	ErrFundExists = errors.New("fund already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Validation codes.
const (
	CodeDuplicateRecipient = "duplicate_recipient"
	CodeCycleTaken         = "cycle_taken"
	CodeUnknownMember      = "unknown_member"
	CodeCycleOutOfRange    = "cycle_out_of_range"
	CodeDuplicateMember    = "duplicate_member"
	CodeMalformedSchedule  = "malformed_schedule"
	CodeInvalidPayment     = "invalid_payment"
	CodeMissingField       = "missing_field"
)

type ValidationError struct {
	Code    string
	Message string
	Cycle   int
	Member  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsConflict reports whether the violation is a uniqueness clash rather than
// malformed input.
func (e *ValidationError) IsConflict() bool {
	return e.Code == CodeDuplicateRecipient || e.Code == CodeCycleTaken || e.Code == CodeDuplicateMember
}

type ConfigError struct {
	Cycle  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("disbursal for cycle %d: %s", e.Cycle, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

type NotFoundError struct {
	Kind string // "fund", "member", "payment", "cycle"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func invalid(code string, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...), Cycle: -1}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrFundExists)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
