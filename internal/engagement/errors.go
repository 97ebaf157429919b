// internal/engagement/errors.go
package engagement

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced by the session and the analyzer.
type ErrorCode string

const (
	// ErrCodeSessionInit means the browser could not be launched or configured.
	ErrCodeSessionInit ErrorCode = "SESSION_INIT"
	// ErrCodeSecurityChallenge means the site asked for human verification.
	// Retrying cannot clear it.
	ErrCodeSecurityChallenge ErrorCode = "SECURITY_CHALLENGE_REQUIRED"
	// ErrCodeAuthentication covers every other login failure.
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeNavigation     ErrorCode = "NAVIGATION_ERROR"
	// ErrCodeReactionsPanel means the reaction summary control is missing or
	// its modal never opened. The collector treats it as "no interactors".
	ErrCodeReactionsPanel ErrorCode = "REACTIONS_PANEL_UNAVAILABLE"
	// ErrCodeInvalidState means an operation was called out of lifecycle order.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error is the typed error carried through the engine.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Retryable reports whether repeating the operation might succeed.
func (e *Error) Retryable() bool { return e.Code == ErrCodeNavigation }

// Sentinels for errors.Is.
var (
	ErrSessionInit               = &Error{Code: ErrCodeSessionInit}
	ErrSecurityChallenge         = &Error{Code: ErrCodeSecurityChallenge}
	ErrAuthentication            = &Error{Code: ErrCodeAuthentication}
	ErrNavigation                = &Error{Code: ErrCodeNavigation}
	ErrReactionsPanelUnavailable = &Error{Code: ErrCodeReactionsPanel}
	ErrInvalidState              = &Error{Code: ErrCodeInvalidState}
)

// NewError wraps err with a code and the operation that produced it.
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
