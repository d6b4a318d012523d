package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/repository"
)

type MockRecoverer struct {
	mock.Mock
}

func (m *MockRecoverer) RecoverLink(ctx context.Context, record repository.LinkRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Snapshot() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockRegistry) Stop(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

type MockLinkRepo struct {
	mock.Mock
	repository.Link
}

func (m *MockLinkRepo) ListByStatus(ctx context.Context, status domain.LinkStatus) ([]repository.LinkRecord, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]repository.LinkRecord), args.Error(1)
}

func record(linkID string, status domain.LinkStatus) repository.LinkRecord {
	return repository.LinkRecord{
		Link: domain.BotServiceLink{
			ID:       linkID,
			BotID:    "B1",
			Platform: domain.PlatformTelegram,
			Status:   status,
		},
		Secret: domain.SessionSecret{LinkID: linkID, SecretBlob: []byte("S"), Authorized: true},
	}
}

func newReconciler(repo *MockLinkRepo, registry *MockRegistry, rec *MockRecoverer) *Reconciler {
	return NewReconciler(repo, registry, rec, time.Minute)
}

func TestProcess_RestartsMissingActiveLink(t *testing.T) {
	repo := new(MockLinkRepo)
	registry := new(MockRegistry)
	rec := new(MockRecoverer)

	r1 := record("L1", domain.LinkStatusActive)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).Return([]repository.LinkRecord{r1}, nil)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusError).Return([]repository.LinkRecord{}, nil)
	registry.On("Snapshot").Return([]string{})
	rec.On("RecoverLink", mock.Anything, r1).Return(nil)

	err := newReconciler(repo, registry, rec).Process(context.Background())

	require.NoError(t, err)
	rec.AssertExpectations(t)
}

func TestProcess_RunningLinkNeedsNothing(t *testing.T) {
	repo := new(MockLinkRepo)
	registry := new(MockRegistry)
	rec := new(MockRecoverer)

	r1 := record("L1", domain.LinkStatusActive)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).Return([]repository.LinkRecord{r1}, nil)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusError).Return([]repository.LinkRecord{}, nil)
	registry.On("Snapshot").Return([]string{"L1"})

	err := newReconciler(repo, registry, rec).Process(context.Background())

	require.NoError(t, err)
	rec.AssertNotCalled(t, "RecoverLink", mock.Anything, mock.Anything)
	registry.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
}

func TestProcess_StopsStrayListener(t *testing.T) {
	repo := new(MockLinkRepo)
	registry := new(MockRegistry)
	rec := new(MockRecoverer)

	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).Return([]repository.LinkRecord{}, nil)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusError).Return([]repository.LinkRecord{}, nil)
	registry.On("Snapshot").Return([]string{"L9"})
	registry.On("Stop", mock.Anything, "L9").Return(nil)

	err := newReconciler(repo, registry, rec).Process(context.Background())

	require.NoError(t, err)
	registry.AssertCalled(t, "Stop", mock.Anything, "L9")
}

func TestProcess_BackoffSkipsRecentFailure(t *testing.T) {
	repo := new(MockLinkRepo)
	registry := new(MockRegistry)
	rec := new(MockRecoverer)

	r1 := record("L1", domain.LinkStatusActive)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).Return([]repository.LinkRecord{r1}, nil)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusError).Return([]repository.LinkRecord{}, nil)
	registry.On("Snapshot").Return([]string{})
	rec.On("RecoverLink", mock.Anything, r1).Return(domain.ErrExternalUnavailable)

	reconciler := newReconciler(repo, registry, rec)

	now := time.Now()
	reconciler.now = func() time.Time { return now }

	// First pass fails and arms the backoff.
	require.NoError(t, reconciler.Process(context.Background()))
	rec.AssertNumberOfCalls(t, "RecoverLink", 1)

	// Second pass inside the window must not retry.
	now = now.Add(BaseBackoff / 2)
	require.NoError(t, reconciler.Process(context.Background()))
	rec.AssertNumberOfCalls(t, "RecoverLink", 1)

	// Past the window it retries.
	now = now.Add(BaseBackoff)
	require.NoError(t, reconciler.Process(context.Background()))
	rec.AssertNumberOfCalls(t, "RecoverLink", 2)
}

func TestProcess_BackoffDoublesUpToCeiling(t *testing.T) {
	reconciler := NewReconciler(new(MockLinkRepo), new(MockRegistry), new(MockRecoverer), 15*time.Second)

	assert.Equal(t, BaseBackoff, reconciler.bumpBackoff("L1"))
	assert.Equal(t, 2*BaseBackoff, reconciler.bumpBackoff("L1"))
	assert.Equal(t, 15*time.Second, reconciler.bumpBackoff("L1"))
	assert.Equal(t, 15*time.Second, reconciler.bumpBackoff("L1"))

	reconciler.clearBackoff("L1")
	assert.Equal(t, BaseBackoff, reconciler.bumpBackoff("L1"))
}

func TestProcess_RetriesFlaggedLink(t *testing.T) {
	repo := new(MockLinkRepo)
	registry := new(MockRegistry)
	rec := new(MockRecoverer)

	r1 := record("L1", domain.LinkStatusError)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).Return([]repository.LinkRecord{}, nil)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusError).Return([]repository.LinkRecord{r1}, nil)
	registry.On("Snapshot").Return([]string{})
	rec.On("RecoverLink", mock.Anything, r1).Return(nil)

	err := newReconciler(repo, registry, rec).Process(context.Background())

	require.NoError(t, err)
	rec.AssertExpectations(t)
	// The recovered link's listener is not stopped as a stray.
	registry.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
}

func TestProcess_ListFailurePropagates(t *testing.T) {
	repo := new(MockLinkRepo)
	repo.On("ListByStatus", mock.Anything, domain.LinkStatusActive).
		Return([]repository.LinkRecord{}, domain.ErrInternal)

	err := newReconciler(repo, new(MockRegistry), new(MockRecoverer)).Process(context.Background())

	require.ErrorIs(t, err, domain.ErrInternal)
}
