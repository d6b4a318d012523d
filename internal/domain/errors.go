package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error message string constants - single source of truth for error messages.
// Use these in assert.Contains() checks when testing error messages.
const (
	ErrMsgAccessDenied        = "access denied"
	ErrMsgNotFound            = "not found"
	ErrMsgConflict            = "conflict"
	ErrMsgAuthCode            = "authentication code rejected"
	ErrMsgRateLimited         = "rate limited"
	ErrMsgExternalUnavailable = "external network unavailable"
	ErrMsgUnauthorizedSession = "session is no longer authorized"
	ErrMsgInternal            = "internal error"

	ErrMsgInvalidPlatform = "invalid platform"
	ErrMsgInvalidInput    = "invalid input"
)

// Common domain errors.
// Wrap these with fmt.Errorf("%w: %s", domain.ErrXxx, details) for context.
var (
	// ErrAccessDenied means the user lacks the required role on the bot.
	ErrAccessDenied = errors.New(ErrMsgAccessDenied)

	// ErrNotFound covers unknown links and unknown bots.
	ErrNotFound = errors.New(ErrMsgNotFound)

	// ErrConflict means a uniqueness invariant would be violated: the bot
	// already has a link on that platform, or the external account is
	// already bound elsewhere.
	ErrConflict = errors.New(ErrMsgConflict)

	// ErrAuthCode is the base error for login-code failures. Prefer the
	// typed AuthCodeError which carries a precise reason.
	ErrAuthCode = errors.New(ErrMsgAuthCode)

	// ErrRateLimited is the base error for network rate limits. Prefer the
	// typed RateLimitedError which carries the retry hint.
	ErrRateLimited = errors.New(ErrMsgRateLimited)

	// ErrExternalUnavailable is a network fault with no finer classification.
	ErrExternalUnavailable = errors.New(ErrMsgExternalUnavailable)

	// ErrUnauthorizedSession means the external account revoked our session.
	ErrUnauthorizedSession = errors.New(ErrMsgUnauthorizedSession)

	// ErrInternal is any unhandled condition. Never expose internals with it.
	ErrInternal = errors.New(ErrMsgInternal)

	ErrInvalidPlatform = errors.New(ErrMsgInvalidPlatform)
	ErrInvalidInput    = errors.New(ErrMsgInvalidInput)
)

// Auth code failure reasons carried by AuthCodeError.
const (
	AuthCodeReasonInvalid          = "invalid"
	AuthCodeReasonExpired          = "expired"
	AuthCodeReasonPasswordRequired = "password_required"
	AuthCodeReasonPasswordInvalid  = "password_invalid"
	AuthCodeReasonBadPhone         = "bad_phone"
)

// AuthCodeError reports why the external network rejected a login step.
type AuthCodeError struct {
	Reason string
}

func (e *AuthCodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMsgAuthCode, e.Reason)
}

// Unwrap lets errors.Is(err, ErrAuthCode) match.
func (e *AuthCodeError) Unwrap() error {
	return ErrAuthCode
}

// NewAuthCodeError builds a typed auth-code failure.
func NewAuthCodeError(reason string) error {
	return &AuthCodeError{Reason: reason}
}

// RateLimitedError is a pass-through of the external network's flood verdict.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrMsgRateLimited, e.RetryAfter)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// NewRateLimitedError builds a typed rate-limit failure.
func NewRateLimitedError(retryAfter time.Duration) error {
	return &RateLimitedError{RetryAfter: retryAfter}
}

// RetryAfter extracts the retry hint from a rate-limit error chain.
// Returns zero and false when err is not a rate limit.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
