// Package access is the thin adapter over the identity service. The core
// asks it exactly one question: may this user act with at least this role on
// this bot.
package access

import (
	"context"

	"github.com/quorix-labs/botlink/internal/domain"
)

// Gate answers role checks. Implementations return domain.ErrAccessDenied
// when the user lacks the role, domain.ErrNotFound when the bot is unknown,
// and domain.ErrExternalUnavailable when the identity service cannot answer.
type Gate interface {
	Require(ctx context.Context, userID, botID string, minRole domain.Role) error
}

// AllowAll is a gate that grants everything. Test and single-tenant use.
type AllowAll struct{}

func (AllowAll) Require(context.Context, string, string, domain.Role) error { return nil }
