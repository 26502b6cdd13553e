// Package derrors defines the coded error type returned by every mutating
// operation in the core. Callers branch on the code, never on message text,
// and the transport layer owns the translation to HTTP statuses.
package derrors

import (
	"errors"
	"fmt"
)

// Code discriminates error outcomes across the policy pipeline.
type Code string

const (
	// Bootstrap guard around the administrator singleton.
	CodeNotInitialized     Code = "not_initialized"
	CodeAlreadyInitialized Code = "already_initialized"

	// Caller is neither the administrator nor the owning principal, or a
	// payment caller does not match the agent it pays as.
	CodeUnauthorized Code = "unauthorized"

	CodeAgentNotFound Code = "agent_not_found"
	CodeAgentExists   Code = "agent_exists"
	CodeRuleNotFound  Code = "rule_not_found"
	CodeRulesNotFound Code = "rules_not_found"
	CodeNotFound      Code = "not_found"

	CodeInvalidParams Code = "invalid_params"

	// Payment pipeline rejections, in pipeline order.
	CodeHalted               Code = "halted"
	CodeAmountTooHigh        Code = "amount_too_high"
	CodeRateLimited          Code = "rate_limited"
	CodeRecipientNotAllowed  Code = "recipient_not_allowed"
	CodeDailyLimitExceeded   Code = "daily_limit_exceeded"
	CodeMonthlyLimitExceeded Code = "monthly_limit_exceeded"
	CodeRuleBlocked          Code = "rule_blocked"
	CodeTransferFailed       Code = "transfer_failed"

	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on code equality so sentinel comparisons work
// across wrapping layers.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
