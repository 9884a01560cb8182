package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deliveryrouting/courier-backend/models"
)

type TourneeRepository struct {
	mock.Mock
}

func (m *TourneeRepository) FetchTournee(ctx context.Context, token string, query models.TourneeQuery) (string, error) {
	args := m.Called(ctx, token, query)
	return args.String(0), args.Error(1)
}

type CompaniesRepository struct {
	mock.Mock
}

func (m *CompaniesRepository) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Company), args.Error(1)
}

type AddressValidator struct {
	mock.Mock
}

func (m *AddressValidator) ValidateAddress(ctx context.Context, address, matricule string) (models.AddressValidation, error) {
	args := m.Called(ctx, address, matricule)
	return args.Get(0).(models.AddressValidation), args.Error(1)
}
