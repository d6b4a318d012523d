package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"github.com/quorix-labs/botlink/internal/domain"
)

// classify maps gotd and MTProto error codes onto the domain taxonomy.
// Context cancellation passes through untouched so callers can tell a stop
// from a network fault.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return domain.NewRateLimitedError(wait)
	}
	switch {
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		return domain.NewAuthCodeError(domain.AuthCodeReasonPasswordRequired)
	case tgerr.Is(err, "PHONE_CODE_INVALID"):
		return domain.NewAuthCodeError(domain.AuthCodeReasonInvalid)
	case tgerr.Is(err, "PHONE_CODE_EXPIRED", "PHONE_CODE_EMPTY"):
		return domain.NewAuthCodeError(domain.AuthCodeReasonExpired)
	case tgerr.Is(err, "PHONE_NUMBER_INVALID", "PHONE_NUMBER_BANNED", "PHONE_NUMBER_FLOOD"):
		return domain.NewAuthCodeError(domain.AuthCodeReasonBadPhone)
	case tgerr.Is(err, "PASSWORD_HASH_INVALID", "SRP_PASSWORD_CHANGED"):
		return domain.NewAuthCodeError(domain.AuthCodeReasonPasswordInvalid)
	case isUnauthorized(err):
		return domain.ErrUnauthorizedSession
	default:
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
}

// isUnauthorized covers the codes Telegram uses for dead or revoked sessions.
func isUnauthorized(err error) bool {
	if auth.IsUnauthorized(err) {
		return true
	}
	return tgerr.Is(err, "AUTH_KEY_UNREGISTERED", "AUTH_KEY_INVALID", "SESSION_REVOKED", "SESSION_EXPIRED", "USER_DEACTIVATED")
}
