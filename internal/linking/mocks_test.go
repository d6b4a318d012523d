package linking

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/messenger"
	"github.com/quorix-labs/botlink/internal/repository"
)

// Mock objects

type MockLinkRepo struct {
	mock.Mock
}

func (m *MockLinkRepo) Reserve(ctx context.Context, botID string, platform domain.Platform, codeHash string, tempSecretBlob []byte) (domain.BotServiceLink, error) {
	args := m.Called(ctx, botID, platform, codeHash, tempSecretBlob)
	return args.Get(0).(domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) GetPending(ctx context.Context, botID string, platform domain.Platform) (repository.LinkRecord, error) {
	args := m.Called(ctx, botID, platform)
	return args.Get(0).(repository.LinkRecord), args.Error(1)
}

func (m *MockLinkRepo) Activate(ctx context.Context, linkID, accountID, username string, secretBlob []byte) (domain.BotServiceLink, error) {
	args := m.Called(ctx, linkID, accountID, username, secretBlob)
	return args.Get(0).(domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) Get(ctx context.Context, linkID string) (domain.BotServiceLink, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) GetWithSecret(ctx context.Context, linkID string) (repository.LinkRecord, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(repository.LinkRecord), args.Error(1)
}

func (m *MockLinkRepo) ListByBot(ctx context.Context, botID string) ([]domain.BotServiceLink, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) ListByStatus(ctx context.Context, status domain.LinkStatus) ([]repository.LinkRecord, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.LinkRecord), args.Error(1)
}

func (m *MockLinkRepo) ReassignBot(ctx context.Context, linkID, newBotID string) (domain.BotServiceLink, error) {
	args := m.Called(ctx, linkID, newBotID)
	return args.Get(0).(domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) SetStatus(ctx context.Context, linkID string, status domain.LinkStatus) error {
	args := m.Called(ctx, linkID, status)
	return args.Error(0)
}

func (m *MockLinkRepo) Revoke(ctx context.Context, linkID string) (domain.BotServiceLink, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(domain.BotServiceLink), args.Error(1)
}

func (m *MockLinkRepo) TouchConnected(ctx context.Context, linkID string, at time.Time) error {
	args := m.Called(ctx, linkID, at)
	return args.Error(0)
}

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) RequestCode(ctx context.Context, phone string) (messenger.CodeGrant, error) {
	args := m.Called(ctx, phone)
	return args.Get(0).(messenger.CodeGrant), args.Error(1)
}

func (m *MockAdapter) SubmitCode(ctx context.Context, req messenger.SubmitCodeRequest) (messenger.LoginResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(messenger.LoginResult), args.Error(1)
}

func (m *MockAdapter) ProbeAuthorized(ctx context.Context, secretBlob []byte) (bool, error) {
	args := m.Called(ctx, secretBlob)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdapter) RunListener(ctx context.Context, secretBlob []byte, hooks messenger.ListenerHooks) error {
	args := m.Called(ctx, secretBlob, hooks)
	return args.Error(0)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Start(link domain.BotServiceLink, secretBlob []byte) error {
	args := m.Called(link, secretBlob)
	return args.Error(0)
}

func (m *MockRegistry) Stop(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

func (m *MockRegistry) Replace(ctx context.Context, link domain.BotServiceLink, secretBlob []byte) error {
	args := m.Called(ctx, link, secretBlob)
	return args.Error(0)
}

func (m *MockRegistry) Snapshot() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) Require(ctx context.Context, userID, botID string, minRole domain.Role) error {
	args := m.Called(ctx, userID, botID, minRole)
	return args.Error(0)
}
