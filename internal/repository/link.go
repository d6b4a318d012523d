package repository

import (
	"context"
	"time"

	"github.com/quorix-labs/botlink/internal/domain"
)

// LinkRecord couples a link row with its secret row for callers that need
// both in one read.
type LinkRecord struct {
	Link   domain.BotServiceLink
	Secret domain.SessionSecret
}

// Link defines durable access to bot-service links and their session
// secrets. Multi-row operations run in one transaction; the uniqueness rules
// (one non-revoked link per bot+platform, one per external account) are
// enforced by database constraints and surface as domain.ErrConflict.
type Link interface {
	// Reserve finds or creates the non-revoked link for (botID, platform),
	// moves it to pending_auth and stores the code round-trip temporaries.
	// Calling it again before SubmitCode overwrites the temporaries. An
	// active link is a conflict.
	Reserve(ctx context.Context, botID string, platform domain.Platform, codeHash string, tempSecretBlob []byte) (domain.BotServiceLink, error)

	// GetPending returns the pending_auth link and its secret for
	// (botID, platform).
	GetPending(ctx context.Context, botID string, platform domain.Platform) (LinkRecord, error)

	// Activate promotes a pending_auth link to active: writes the authorized
	// blob and the external account identity, clears the temporaries.
	Activate(ctx context.Context, linkID, accountID, username string, secretBlob []byte) (domain.BotServiceLink, error)

	// Get returns the link row by ID.
	Get(ctx context.Context, linkID string) (domain.BotServiceLink, error)

	// GetWithSecret returns the link row and its secret.
	GetWithSecret(ctx context.Context, linkID string) (LinkRecord, error)

	// ListByBot returns the bot's non-revoked links.
	ListByBot(ctx context.Context, botID string) ([]domain.BotServiceLink, error)

	// ListByStatus returns every link in the given status with its secret.
	ListByStatus(ctx context.Context, status domain.LinkStatus) ([]LinkRecord, error)

	// ReassignBot rebinds the link to newBotID under a row lock.
	ReassignBot(ctx context.Context, linkID, newBotID string) (domain.BotServiceLink, error)

	// SetStatus flips the link status and touches updated_at.
	SetStatus(ctx context.Context, linkID string, status domain.LinkStatus) error

	// Revoke soft-deletes the link and nulls the secret material. Revoking
	// an already revoked link is a no-op returning the current row.
	Revoke(ctx context.Context, linkID string) (domain.BotServiceLink, error)

	// TouchConnected records a successful listener connection time.
	TouchConnected(ctx context.Context, linkID string, at time.Time) error
}
