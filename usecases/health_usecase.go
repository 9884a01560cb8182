package usecases

import (
	"context"

	"github.com/deliveryrouting/courier-backend/models"
)

type courierHealthRepository interface {
	AuthLiveness(ctx context.Context) error
	TourneeLiveness(ctx context.Context) error
}

type HealthUsecase struct {
	sessions         SessionOrchestrator
	healthRepository courierHealthRepository
	hasPassword      bool
}

func (u *HealthUsecase) GetHealthStatus(ctx context.Context) models.HealthStatus {
	statuses := []models.HealthItemStatus{
		{
			Name:   models.CredentialCacheHealthItemName,
			Status: u.sessions != nil,
		},
	}

	// Automatic logins need a configured password on top of a reachable host
	err := u.healthRepository.AuthLiveness(ctx)
	statuses = append(statuses, models.HealthItemStatus{
		Name:   models.CourierAuthHealthItemName,
		Status: err == nil && u.hasPassword,
	})

	err = u.healthRepository.TourneeLiveness(ctx)
	statuses = append(statuses, models.HealthItemStatus{
		Name:   models.CourierTourneeHealthItemName,
		Status: err == nil,
	})

	return models.HealthStatus{
		Statuses: statuses,
	}
}

func (u *HealthUsecase) CachedSessions() int {
	if u.sessions == nil {
		return 0
	}
	return u.sessions.CachedSessions()
}
