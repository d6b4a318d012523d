// Package linking implements the command surface of the session supervisor:
// the interactive login flow, link lifecycle commands, and boot recovery.
// Every command follows the same envelope: access check, load, adapter call,
// persist, registry adjustment, event publish. The link store is the source
// of truth; a crash between persist and registry is healed by the supervisor
// on its next tick.
package linking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quorix-labs/botlink/internal/access"
	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/event"
	"github.com/quorix-labs/botlink/internal/logger"
	"github.com/quorix-labs/botlink/internal/messenger"
	"github.com/quorix-labs/botlink/internal/metrics"
	"github.com/quorix-labs/botlink/internal/repository"
)

// Registry is the slice of the session registry the commands need.
type Registry interface {
	Start(link domain.BotServiceLink, secretBlob []byte) error
	Stop(ctx context.Context, linkID string) error
	Replace(ctx context.Context, link domain.BotServiceLink, secretBlob []byte) error
	Snapshot() []string
}

// RequestCodeResult reports a sent login code.
type RequestCodeResult struct {
	Status string `json:"status"`
	LinkID string `json:"link_id"`
}

// SubmitCodeResult reports a completed login.
type SubmitCodeResult struct {
	Status           string `json:"status"`
	LinkID           string `json:"link_id"`
	ExternalUserID   string `json:"external_user_id"`
	ExternalUsername string `json:"external_username,omitempty"`
}

// LinkInfo is one row of a bot's link listing.
type LinkInfo struct {
	LinkID           string            `json:"link_id"`
	Platform         domain.Platform   `json:"platform"`
	Status           domain.LinkStatus `json:"status"`
	ExternalUserID   string            `json:"external_user_id,omitempty"`
	ExternalUsername string            `json:"external_username,omitempty"`
}

// Service defines the link command handlers.
type Service interface {
	// RequestCode starts the interactive login: the network sends a code to
	// the phone and the link moves to pending_auth. Calling it again before
	// SubmitCode restarts the attempt.
	RequestCode(ctx context.Context, userID, botID, phone string) (RequestCodeResult, error)

	// SubmitCode completes the login with the received code (and password
	// for 2FA accounts), activates the link and starts its listener.
	SubmitCode(ctx context.Context, userID, botID, phone, code, password string) (SubmitCodeResult, error)

	// Reassign rebinds a link to another bot, swapping the live listener
	// without a double-listener window. The caller needs the role on both
	// bots.
	Reassign(ctx context.Context, userID, linkID, newBotID string) error

	// Unlink stops the listener and soft-deletes the link. Idempotent.
	Unlink(ctx context.Context, userID, linkID string) error

	// ListLinks returns the bot's non-revoked links.
	ListLinks(ctx context.Context, userID, botID string) ([]LinkInfo, error)

	// BootRecover probes every active link and resumes its listener. Links
	// whose session the network rejected are flagged and announced.
	BootRecover(ctx context.Context) error

	// RecoverLink probes and starts one link. Shared by BootRecover and the
	// supervisor's reconcile loop; an error-status link is promoted back to
	// active on success.
	RecoverLink(ctx context.Context, record repository.LinkRecord) error
}

type service struct {
	repo     repository.Link
	adapter  messenger.Adapter
	registry Registry
	gate     access.Gate
	bus      event.Bus
}

// NewService creates a new linking service
func NewService(repo repository.Link, adapter messenger.Adapter, registry Registry, gate access.Gate, bus event.Bus) Service {
	return &service{
		repo:     repo,
		adapter:  adapter,
		registry: registry,
		gate:     gate,
		bus:      bus,
	}
}

// observe times one command for the duration histogram.
func observe(command string) func() {
	start := time.Now()
	return func() {
		metrics.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}
}

func (s *service) RequestCode(ctx context.Context, userID, botID, phone string) (RequestCodeResult, error) {
	defer observe(CommandRequestCode)()
	log := logger.FromContext(ctx)

	if err := s.gate.Require(ctx, userID, botID, domain.RoleAdmin); err != nil {
		return RequestCodeResult{}, err
	}

	grant, err := s.adapter.RequestCode(ctx, phone)
	if err != nil {
		// Rate limits and bad phones surface verbatim; the link keeps its
		// prior non-active state.
		return RequestCodeResult{}, err
	}

	link, err := s.repo.Reserve(ctx, botID, domain.PlatformTelegram, grant.CodeHash, grant.TempSecretBlob)
	if err != nil {
		return RequestCodeResult{}, err
	}

	log.Info(LogMsgCodeRequested, LogKeyLinkID, link.ID, LogKeyBotID, botID, LogKeyUserID, userID)
	return RequestCodeResult{Status: StatusCodeSent, LinkID: link.ID}, nil
}

func (s *service) SubmitCode(ctx context.Context, userID, botID, phone, code, password string) (SubmitCodeResult, error) {
	defer observe(CommandSubmitCode)()
	log := logger.FromContext(ctx)

	if err := s.gate.Require(ctx, userID, botID, domain.RoleAdmin); err != nil {
		return SubmitCodeResult{}, err
	}

	record, err := s.repo.GetPending(ctx, botID, domain.PlatformTelegram)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitCodeResult{}, fmt.Errorf(ErrContextNoPendingLogin, domain.ErrNotFound)
		}
		return SubmitCodeResult{}, err
	}

	login, err := s.adapter.SubmitCode(ctx, messenger.SubmitCodeRequest{
		Phone:          phone,
		Code:           code,
		CodeHash:       record.Secret.CodeHash,
		Password:       password,
		TempSecretBlob: record.Secret.TempSecretBlob,
	})
	if err != nil {
		return SubmitCodeResult{}, err
	}

	link, err := s.repo.Activate(ctx, record.Link.ID, login.ExternalUserID, login.ExternalUsername, login.SecretBlob)
	if err != nil {
		return SubmitCodeResult{}, err
	}

	if err := s.registry.Start(link, login.SecretBlob); err != nil {
		// The credential is persisted and valid; flag the link so the user
		// can retry and the supervisor keeps trying.
		s.flagError(ctx, link.ID)
		log.Warn(LogMsgListenerStartFailed, LogKeyLinkID, link.ID, LogKeyError, err)
		return SubmitCodeResult{}, fmt.Errorf(ErrContextListenerStart, err)
	}
	s.touchConnected(ctx, link.ID)

	s.publish(ctx, event.NewLinkActivatedEvent(link.ID, link.BotID, link.Platform))
	log.Info(LogMsgLinkActivated, LogKeyLinkID, link.ID, LogKeyBotID, link.BotID, LogKeyUserID, userID)

	return SubmitCodeResult{
		Status:           StatusActive,
		LinkID:           link.ID,
		ExternalUserID:   login.ExternalUserID,
		ExternalUsername: login.ExternalUsername,
	}, nil
}

func (s *service) Reassign(ctx context.Context, userID, linkID, newBotID string) error {
	defer observe(CommandReassign)()
	log := logger.FromContext(ctx)

	record, err := s.repo.GetWithSecret(ctx, linkID)
	if err != nil {
		return err
	}
	if record.Link.Status.Revoked() {
		return fmt.Errorf("link %s: %w", linkID, domain.ErrNotFound)
	}

	// The caller must hold the role on both the current and the new bot.
	if err := s.gate.Require(ctx, userID, record.Link.BotID, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.gate.Require(ctx, userID, newBotID, domain.RoleAdmin); err != nil {
		return err
	}

	moved, err := s.repo.ReassignBot(ctx, linkID, newBotID)
	if err != nil {
		return err
	}

	if record.Link.Status == domain.LinkStatusActive {
		if err := s.registry.Replace(ctx, moved, record.Secret.SecretBlob); err != nil {
			// The secret stays valid; the supervisor retries the start with
			// backoff, so no new login round-trip is needed.
			s.flagError(ctx, linkID)
			log.Warn(LogMsgListenerStartFailed, LogKeyLinkID, linkID, LogKeyError, err)
			return fmt.Errorf(ErrContextListenerReplace, err)
		}
	}

	log.Info(LogMsgLinkReassigned, LogKeyLinkID, linkID, LogKeyBotID, record.Link.BotID, LogKeyNewBotID, newBotID, LogKeyUserID, userID)
	return nil
}

func (s *service) Unlink(ctx context.Context, userID, linkID string) error {
	defer observe(CommandUnlink)()
	log := logger.FromContext(ctx)

	link, err := s.repo.Get(ctx, linkID)
	if err != nil {
		return err
	}

	if err := s.gate.Require(ctx, userID, link.BotID, domain.RoleAdmin); err != nil {
		return err
	}

	if link.Status.Revoked() {
		return nil
	}

	// Stop before revoke: a message racing the transition is delivered
	// against the old active link or dropped, never against a revoked one.
	if err := s.registry.Stop(ctx, linkID); err != nil {
		log.Warn(LogMsgStopBeforeRevokeError, LogKeyLinkID, linkID, LogKeyError, err)
	}

	revoked, err := s.repo.Revoke(ctx, linkID)
	if err != nil {
		return err
	}

	s.publish(ctx, event.NewLinkRevokedEvent(revoked.ID, revoked.BotID, revoked.Platform))
	log.Info(LogMsgLinkRevoked, LogKeyLinkID, linkID, LogKeyBotID, revoked.BotID, LogKeyUserID, userID)
	return nil
}

func (s *service) ListLinks(ctx context.Context, userID, botID string) ([]LinkInfo, error) {
	defer observe(CommandListLinks)()

	if err := s.gate.Require(ctx, userID, botID, domain.RoleViewer); err != nil {
		return nil, err
	}

	links, err := s.repo.ListByBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	infos := make([]LinkInfo, 0, len(links))
	for _, link := range links {
		infos = append(infos, LinkInfo{
			LinkID:           link.ID,
			Platform:         link.Platform,
			Status:           link.Status,
			ExternalUserID:   link.LinkedAccountID,
			ExternalUsername: link.LinkedUsername,
		})
	}
	return infos, nil
}

func (s *service) BootRecover(ctx context.Context) error {
	defer observe(CommandBootRecover)()
	log := logger.FromContext(ctx)

	records, err := s.repo.ListByStatus(ctx, domain.LinkStatusActive)
	if err != nil {
		return err
	}

	log.Info(LogMsgBootRecoverStarted, "links", len(records))
	for _, record := range records {
		if err := s.RecoverLink(ctx, record); err != nil {
			if ctx.Err() != nil {
				return err
			}
			// Network faults leave the link active; the supervisor retries
			// with backoff on its next tick.
			log.Warn(LogMsgProbeUnreachable, LogKeyLinkID, record.Link.ID, LogKeyError, err)
		}
	}
	log.Info(LogMsgBootRecoverFinished)
	return nil
}

func (s *service) RecoverLink(ctx context.Context, record repository.LinkRecord) error {
	log := logger.FromContext(ctx)
	link := record.Link

	if !record.Secret.Authorized || len(record.Secret.SecretBlob) == 0 {
		s.deauthorize(ctx, link, DeauthReasonMissingSecret)
		return nil
	}

	authorized, err := s.adapter.ProbeAuthorized(ctx, record.Secret.SecretBlob)
	if err != nil {
		return err
	}
	if !authorized {
		s.deauthorize(ctx, link, DeauthReasonUnauthorized)
		return nil
	}

	if err := s.registry.Start(link, record.Secret.SecretBlob); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		// A listener is already live. The link row may still say error, so
		// fall through to the promotion below.
	} else {
		s.touchConnected(ctx, link.ID)
	}

	if link.Status == domain.LinkStatusError {
		if err := s.repo.SetStatus(ctx, link.ID, domain.LinkStatusActive); err != nil {
			log.Warn(LogMsgFailedToFlagLink, LogKeyLinkID, link.ID, LogKeyError, err)
		}
	}
	return nil
}

// deauthorize flags a link whose session the network no longer honors.
func (s *service) deauthorize(ctx context.Context, link domain.BotServiceLink, reason string) {
	log := logger.FromContext(ctx)

	if err := s.repo.SetStatus(ctx, link.ID, domain.LinkStatusError); err != nil {
		log.Warn(LogMsgFailedToFlagLink, LogKeyLinkID, link.ID, LogKeyError, err)
		return
	}
	if link.Status != domain.LinkStatusError {
		s.publish(ctx, event.NewLinkDeauthorizedEvent(link.ID, link.BotID, link.Platform, reason))
	}
	log.Warn(LogMsgLinkDeauthorized, LogKeyLinkID, link.ID, "reason", reason)
}

func (s *service) flagError(ctx context.Context, linkID string) {
	if err := s.repo.SetStatus(ctx, linkID, domain.LinkStatusError); err != nil {
		logger.FromContext(ctx).Warn(LogMsgFailedToFlagLink, LogKeyLinkID, linkID, LogKeyError, err)
	}
}

func (s *service) touchConnected(ctx context.Context, linkID string) {
	if err := s.repo.TouchConnected(ctx, linkID, time.Now().UTC()); err != nil {
		logger.FromContext(ctx).Debug(LogMsgFailedToFlagLink, LogKeyLinkID, linkID, LogKeyError, err)
	}
}

func (s *service) publish(ctx context.Context, ev event.Event) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn(LogMsgFailedToPublishEvent, "type", ev.Type, LogKeyError, err)
	}
}
