package orchestrator

import (
	"errors"
	"fmt"
)

// UnavailableMessage is the only text shown to users when both checks fail.
const UnavailableMessage = "checks unavailable"

var (
	// ErrNoProduct means there is no input yet; render nothing.
	ErrNoProduct = errors.New("no product to check")
	// ErrSessionClosed is returned by every Session method after Close.
	ErrSessionClosed = errors.New("check session closed")
	// ErrSuperseded is returned to a caller whose input was replaced by a
	// newer one before its check completed.
	ErrSuperseded = errors.New("check superseded by newer input")
)

// CheckerError wraps a failure (error or recovered panic) of one checker.
type CheckerError struct {
	Checker string
	Err     error
}

func (e *CheckerError) Error() string { return fmt.Sprintf("%s checker failed: %v", e.Checker, e.Err) }
func (e *CheckerError) Unwrap() error { return e.Err }

// PartialCheckFailure is informational: one checker failed and its
// contribution is empty, the other's results stand.
type PartialCheckFailure struct {
	Checker string
	Err     error
}

func (e *PartialCheckFailure) Error() string {
	return fmt.Sprintf("partial check failure: %s: %v", e.Checker, e.Err)
}
func (e *PartialCheckFailure) Unwrap() error { return e.Err }

// TotalCheckFailure means both checkers failed.
type TotalCheckFailure struct {
	ComplianceErr error
	PersonaErr    error
}

func (e *TotalCheckFailure) Error() string {
	return fmt.Sprintf("all checks failed: compliance: %v; persona: %v", e.ComplianceErr, e.PersonaErr)
}

func (e *TotalCheckFailure) Unwrap() []error { return []error{e.ComplianceErr, e.PersonaErr} }
