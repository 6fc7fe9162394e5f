package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rewardly/rewardly/domain"
)

// --- Mock implementations shared by the service tests ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ApplyConnectionBonus(ctx context.Context, id, platform string) (*domain.User, error) {
	args := m.Called(ctx, id, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ApplyWithdrawal(ctx context.Context, id string, points, rupees int64) (*domain.User, error) {
	args := m.Called(ctx, id, points, rupees)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SetFacebookData(ctx context.Context, id string, data *domain.FacebookData) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockLinkStore struct {
	mock.Mock
}

func (m *MockLinkStore) Create(ctx context.Context, link *domain.PendingLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkStore) Redeem(ctx context.Context, token, expectedPlatform string) (*domain.PendingLink, error) {
	args := m.Called(ctx, token, expectedPlatform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingLink), args.Error(1)
}

func (m *MockLinkStore) Peek(ctx context.Context, token string) (*domain.PendingLink, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingLink), args.Error(1)
}

func (m *MockLinkStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

type MockQRRenderer struct {
	mock.Mock
}

func (m *MockQRRenderer) DataURL(payload []byte) (string, error) {
	args := m.Called(payload)
	return args.String(0), args.Error(1)
}

type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}
