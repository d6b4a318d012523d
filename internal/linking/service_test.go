package linking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quorix-labs/botlink/internal/access"
	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/event"
	"github.com/quorix-labs/botlink/internal/messenger"
	"github.com/quorix-labs/botlink/internal/repository"
)

// eventCollector records every event the service publishes.
type eventCollector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *eventCollector) subscribe(bus event.Bus) {
	for _, t := range []event.Type{event.LinkActivated, event.LinkRevoked, event.LinkDeauthorized} {
		bus.Subscribe(t, func(_ context.Context, ev event.Event) error {
			c.mu.Lock()
			c.events = append(c.events, ev)
			c.mu.Unlock()
			return nil
		})
	}
}

func (c *eventCollector) byType(t event.Type) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type fixture struct {
	repo     *MockLinkRepo
	adapter  *MockAdapter
	registry *MockRegistry
	events   *eventCollector
	svc      Service
}

func newFixture() *fixture {
	repo := new(MockLinkRepo)
	adapter := new(MockAdapter)
	registry := new(MockRegistry)
	bus := event.NewMemoryBus()
	events := &eventCollector{}
	events.subscribe(bus)

	return &fixture{
		repo:     repo,
		adapter:  adapter,
		registry: registry,
		events:   events,
		svc:      NewService(repo, adapter, registry, access.AllowAll{}, bus),
	}
}

func activeRecord(linkID, botID, accountID string, blob []byte) repository.LinkRecord {
	return repository.LinkRecord{
		Link: domain.BotServiceLink{
			ID:              linkID,
			BotID:           botID,
			Platform:        domain.PlatformTelegram,
			LinkedAccountID: accountID,
			Status:          domain.LinkStatusActive,
		},
		Secret: domain.SessionSecret{
			LinkID:     linkID,
			SecretBlob: blob,
			Authorized: true,
		},
	}
}

func TestRequestCode_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.adapter.On("RequestCode", mock.Anything, "+100000001").
		Return(messenger.CodeGrant{CodeHash: "H", TempSecretBlob: []byte("T")}, nil)
	f.repo.On("Reserve", mock.Anything, "B1", domain.PlatformTelegram, "H", []byte("T")).
		Return(domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusPendingAuth}, nil)

	result, err := f.svc.RequestCode(ctx, "U1", "B1", "+100000001")

	require.NoError(t, err)
	assert.Equal(t, StatusCodeSent, result.Status)
	assert.Equal(t, "L1", result.LinkID)
	assert.Zero(t, f.events.count())
	f.repo.AssertExpectations(t)
	f.adapter.AssertExpectations(t)
}

func TestRequestCode_RateLimited(t *testing.T) {
	f := newFixture()

	f.adapter.On("RequestCode", mock.Anything, "+100000001").
		Return(messenger.CodeGrant{}, domain.NewRateLimitedError(30*time.Second))

	_, err := f.svc.RequestCode(context.Background(), "U1", "B1", "+100000001")

	require.ErrorIs(t, err, domain.ErrRateLimited)
	wait, ok := domain.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)
	// Nothing persisted on a rate limit.
	f.repo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_AccessDenied(t *testing.T) {
	repo := new(MockLinkRepo)
	adapter := new(MockAdapter)
	gate := new(MockGate)
	gate.On("Require", mock.Anything, "U2", "B1", domain.RoleAdmin).Return(domain.ErrAccessDenied)

	svc := NewService(repo, adapter, new(MockRegistry), gate, event.NewMemoryBus())
	_, err := svc.RequestCode(context.Background(), "U2", "B1", "+100000001")

	require.ErrorIs(t, err, domain.ErrAccessDenied)
	adapter.AssertNotCalled(t, "RequestCode", mock.Anything, mock.Anything)
}

func TestSubmitCode_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending := repository.LinkRecord{
		Link: domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusPendingAuth},
		Secret: domain.SessionSecret{
			LinkID:         "L1",
			CodeHash:       "H",
			TempSecretBlob: []byte("T"),
		},
	}
	activated := domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, LinkedAccountID: "tg-777", Status: domain.LinkStatusActive}

	f.repo.On("GetPending", mock.Anything, "B1", domain.PlatformTelegram).Return(pending, nil)
	f.adapter.On("SubmitCode", mock.Anything, messenger.SubmitCodeRequest{
		Phone:          "+100000001",
		Code:           "12345",
		CodeHash:       "H",
		TempSecretBlob: []byte("T"),
	}).Return(messenger.LoginResult{SecretBlob: []byte("A"), ExternalUserID: "tg-777", ExternalUsername: "alice"}, nil)
	f.repo.On("Activate", mock.Anything, "L1", "tg-777", "alice", []byte("A")).Return(activated, nil)
	f.registry.On("Start", activated, []byte("A")).Return(nil)
	f.repo.On("TouchConnected", mock.Anything, "L1", mock.Anything).Return(nil)

	result, err := f.svc.SubmitCode(ctx, "U1", "B1", "+100000001", "12345", "")

	require.NoError(t, err)
	assert.Equal(t, StatusActive, result.Status)
	assert.Equal(t, "L1", result.LinkID)
	assert.Equal(t, "tg-777", result.ExternalUserID)

	activatedEvents := f.events.byType(event.LinkActivated)
	require.Len(t, activatedEvents, 1)
	payload, err := event.DecodeLinkLifecycle(activatedEvents[0])
	require.NoError(t, err)
	assert.Equal(t, "L1", payload.LinkID)
	assert.Equal(t, "B1", payload.BotID)
	assert.Equal(t, domain.PlatformTelegram, payload.Platform)
	f.registry.AssertExpectations(t)
}

func TestSubmitCode_WrongCode(t *testing.T) {
	f := newFixture()

	pending := repository.LinkRecord{
		Link:   domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusPendingAuth},
		Secret: domain.SessionSecret{LinkID: "L1", CodeHash: "H", TempSecretBlob: []byte("T")},
	}
	f.repo.On("GetPending", mock.Anything, "B1", domain.PlatformTelegram).Return(pending, nil)
	f.adapter.On("SubmitCode", mock.Anything, mock.Anything).
		Return(messenger.LoginResult{}, domain.NewAuthCodeError(domain.AuthCodeReasonInvalid))

	_, err := f.svc.SubmitCode(context.Background(), "U1", "B1", "+100000001", "00000", "")

	require.ErrorIs(t, err, domain.ErrAuthCode)
	var authErr *domain.AuthCodeError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthCodeReasonInvalid, authErr.Reason)

	// Link stays pending, no listener, zero events.
	f.repo.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.registry.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	assert.Zero(t, f.events.count())
}

func TestSubmitCode_NoPendingLogin(t *testing.T) {
	f := newFixture()

	f.repo.On("GetPending", mock.Anything, "B1", domain.PlatformTelegram).
		Return(repository.LinkRecord{}, domain.ErrNotFound)

	_, err := f.svc.SubmitCode(context.Background(), "U1", "B1", "+100000001", "12345", "")

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitCode_StartFailureFlagsLink(t *testing.T) {
	f := newFixture()

	pending := repository.LinkRecord{
		Link:   domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusPendingAuth},
		Secret: domain.SessionSecret{LinkID: "L1", CodeHash: "H", TempSecretBlob: []byte("T")},
	}
	activated := domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, LinkedAccountID: "tg-777", Status: domain.LinkStatusActive}

	f.repo.On("GetPending", mock.Anything, "B1", domain.PlatformTelegram).Return(pending, nil)
	f.adapter.On("SubmitCode", mock.Anything, mock.Anything).
		Return(messenger.LoginResult{SecretBlob: []byte("A"), ExternalUserID: "tg-777"}, nil)
	f.repo.On("Activate", mock.Anything, "L1", "tg-777", "", []byte("A")).Return(activated, nil)
	f.registry.On("Start", activated, []byte("A")).Return(domain.ErrExternalUnavailable)
	f.repo.On("SetStatus", mock.Anything, "L1", domain.LinkStatusError).Return(nil)

	_, err := f.svc.SubmitCode(context.Background(), "U1", "B1", "+100000001", "12345", "")

	require.Error(t, err)
	f.repo.AssertCalled(t, "SetStatus", mock.Anything, "L1", domain.LinkStatusError)
	assert.Zero(t, f.events.count())
}

func TestReassign_HappyPath(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	moved := record.Link
	moved.BotID = "B2"

	f.repo.On("GetWithSecret", mock.Anything, "L1").Return(record, nil)
	f.repo.On("ReassignBot", mock.Anything, "L1", "B2").Return(moved, nil)
	f.registry.On("Replace", mock.Anything, moved, []byte("A")).Return(nil)

	err := f.svc.Reassign(context.Background(), "U1", "L1", "B2")

	require.NoError(t, err)
	f.registry.AssertExpectations(t)
}

func TestReassign_Conflict(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	f.repo.On("GetWithSecret", mock.Anything, "L1").Return(record, nil)
	f.repo.On("ReassignBot", mock.Anything, "L1", "B2").
		Return(domain.BotServiceLink{}, domain.ErrConflict)

	err := f.svc.Reassign(context.Background(), "U1", "L1", "B2")

	require.ErrorIs(t, err, domain.ErrConflict)
	// Neither listener is touched on a refused reassign.
	f.registry.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
	f.registry.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
}

func TestReassign_RequiresRoleOnBothBots(t *testing.T) {
	repo := new(MockLinkRepo)
	gate := new(MockGate)
	registry := new(MockRegistry)
	svc := NewService(repo, new(MockAdapter), registry, gate, event.NewMemoryBus())

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	repo.On("GetWithSecret", mock.Anything, "L1").Return(record, nil)
	gate.On("Require", mock.Anything, "U1", "B1", domain.RoleAdmin).Return(nil)
	gate.On("Require", mock.Anything, "U1", "B2", domain.RoleAdmin).Return(domain.ErrAccessDenied)

	err := svc.Reassign(context.Background(), "U1", "L1", "B2")

	require.ErrorIs(t, err, domain.ErrAccessDenied)
	repo.AssertNotCalled(t, "ReassignBot", mock.Anything, mock.Anything, mock.Anything)
	gate.AssertExpectations(t)
}

func TestReassign_ReplaceFailureFlagsLink(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	moved := record.Link
	moved.BotID = "B2"

	f.repo.On("GetWithSecret", mock.Anything, "L1").Return(record, nil)
	f.repo.On("ReassignBot", mock.Anything, "L1", "B2").Return(moved, nil)
	f.registry.On("Replace", mock.Anything, moved, []byte("A")).Return(domain.ErrExternalUnavailable)
	f.repo.On("SetStatus", mock.Anything, "L1", domain.LinkStatusError).Return(nil)

	err := f.svc.Reassign(context.Background(), "U1", "L1", "B2")

	require.Error(t, err)
	f.repo.AssertCalled(t, "SetStatus", mock.Anything, "L1", domain.LinkStatusError)
}

func TestUnlink_StopsBeforeRevoke(t *testing.T) {
	f := newFixture()

	var order []string
	link := domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusActive}
	revoked := link
	revoked.Status = domain.LinkStatusRevoked

	f.repo.On("Get", mock.Anything, "L1").Return(link, nil)
	f.registry.On("Stop", mock.Anything, "L1").Run(func(mock.Arguments) {
		order = append(order, "stop")
	}).Return(nil)
	f.repo.On("Revoke", mock.Anything, "L1").Run(func(mock.Arguments) {
		order = append(order, "revoke")
	}).Return(revoked, nil)

	err := f.svc.Unlink(context.Background(), "U1", "L1")

	require.NoError(t, err)
	assert.Equal(t, []string{"stop", "revoke"}, order)

	revokedEvents := f.events.byType(event.LinkRevoked)
	require.Len(t, revokedEvents, 1)
}

func TestUnlink_Idempotent(t *testing.T) {
	f := newFixture()

	revoked := domain.BotServiceLink{ID: "L1", BotID: "B1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusRevoked}
	f.repo.On("Get", mock.Anything, "L1").Return(revoked, nil)

	err := f.svc.Unlink(context.Background(), "U1", "L1")

	require.NoError(t, err)
	f.registry.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	assert.Zero(t, f.events.count())
}

func TestListLinks(t *testing.T) {
	f := newFixture()

	f.repo.On("ListByBot", mock.Anything, "B1").Return([]domain.BotServiceLink{
		{ID: "L1", Platform: domain.PlatformTelegram, Status: domain.LinkStatusActive, LinkedAccountID: "tg-777", LinkedUsername: "alice"},
		{ID: "L2", Platform: domain.PlatformTelegram, Status: domain.LinkStatusPendingAuth},
	}, nil)

	infos, err := f.svc.ListLinks(context.Background(), "U1", "B1")

	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "tg-777", infos[0].ExternalUserID)
	assert.Equal(t, "alice", infos[0].ExternalUsername)
	assert.Empty(t, infos[1].ExternalUserID)
}

func TestBootRecover_ResumesWithoutDuplicateActivation(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	f.repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).
		Return([]repository.LinkRecord{record}, nil)
	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).Return(true, nil)
	f.registry.On("Start", record.Link, []byte("A")).Return(nil)
	f.repo.On("TouchConnected", mock.Anything, "L1", mock.Anything).Return(nil)

	err := f.svc.BootRecover(context.Background())

	require.NoError(t, err)
	f.registry.AssertExpectations(t)
	// Resume is silent: no second LinkActivated.
	assert.Empty(t, f.events.byType(event.LinkActivated))
}

func TestBootRecover_DeauthorizedLink(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	f.repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).
		Return([]repository.LinkRecord{record}, nil)
	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).Return(false, nil)
	f.repo.On("SetStatus", mock.Anything, "L1", domain.LinkStatusError).Return(nil)

	err := f.svc.BootRecover(context.Background())

	require.NoError(t, err)
	f.registry.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)

	deauth := f.events.byType(event.LinkDeauthorized)
	require.Len(t, deauth, 1)
	payload, err := event.DecodeLinkDeauthorized(deauth[0])
	require.NoError(t, err)
	assert.Equal(t, DeauthReasonUnauthorized, payload.Reason)
}

func TestBootRecover_NetworkFaultLeavesLinkActive(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	f.repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).
		Return([]repository.LinkRecord{record}, nil)
	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).
		Return(false, domain.ErrExternalUnavailable)

	err := f.svc.BootRecover(context.Background())

	// BootRecover itself succeeds; the supervisor retries the link later.
	require.NoError(t, err)
	f.repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	f.registry.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestRecoverLink_AlreadyRunningIsNoCorrection(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).Return(true, nil)
	f.registry.On("Start", record.Link, []byte("A")).Return(domain.ErrConflict)

	err := f.svc.RecoverLink(context.Background(), record)

	require.NoError(t, err)
}

func TestRecoverLink_PromotesErrorLinkWithLiveListener(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	record.Link.Status = domain.LinkStatusError

	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).Return(true, nil)
	f.registry.On("Start", record.Link, []byte("A")).Return(domain.ErrConflict)
	f.repo.On("SetStatus", mock.Anything, "L1", domain.LinkStatusActive).Return(nil)

	err := f.svc.RecoverLink(context.Background(), record)

	// The surviving listener is the success condition; the flag clears.
	require.NoError(t, err)
	f.repo.AssertCalled(t, "SetStatus", mock.Anything, "L1", domain.LinkStatusActive)
	f.repo.AssertNotCalled(t, "TouchConnected", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecoverLink_PromotesErrorLink(t *testing.T) {
	f := newFixture()

	record := activeRecord("L1", "B1", "tg-777", []byte("A"))
	record.Link.Status = domain.LinkStatusError

	f.adapter.On("ProbeAuthorized", mock.Anything, []byte("A")).Return(true, nil)
	f.registry.On("Start", record.Link, []byte("A")).Return(nil)
	f.repo.On("TouchConnected", mock.Anything, "L1", mock.Anything).Return(nil)
	f.repo.On("SetStatus", mock.Anything, "L1", domain.LinkStatusActive).Return(nil)

	err := f.svc.RecoverLink(context.Background(), record)

	require.NoError(t, err)
	f.repo.AssertCalled(t, "SetStatus", mock.Anything, "L1", domain.LinkStatusActive)
}
