package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deliveryrouting/courier-backend/models"
)

type SessionOrchestrator struct {
	mock.Mock
}

func (m *SessionOrchestrator) EnsureToken(ctx context.Context, key models.AccountKey) (models.SessionTokenResult, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(models.SessionTokenResult), args.Error(1)
}

func (m *SessionOrchestrator) Authenticate(ctx context.Context, creds models.CourierCredentials) (models.SessionTokenResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(models.SessionTokenResult), args.Error(1)
}

func (m *SessionOrchestrator) Invalidate(ctx context.Context, key models.AccountKey, rejected string) {
	m.Called(ctx, key, rejected)
}

func (m *SessionOrchestrator) CachedSessions() int {
	args := m.Called()
	return args.Int(0)
}
