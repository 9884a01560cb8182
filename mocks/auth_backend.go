package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deliveryrouting/courier-backend/models"
)

type AuthBackend struct {
	mock.Mock
}

func (m *AuthBackend) Authenticate(ctx context.Context, creds models.CourierCredentials) ([]byte, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type CredentialProvider struct {
	mock.Mock
}

func (m *CredentialProvider) CredentialsFor(ctx context.Context, key models.AccountKey) (models.CourierCredentials, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(models.CourierCredentials), args.Error(1)
}
