package usecases

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/deliveryrouting/courier-backend/mocks"
	"github.com/deliveryrouting/courier-backend/models"
)

type stubHealthRepository struct {
	authErr    error
	tourneeErr error
}

func (r stubHealthRepository) AuthLiveness(ctx context.Context) error    { return r.authErr }
func (r stubHealthRepository) TourneeLiveness(ctx context.Context) error { return r.tourneeErr }

func TestHealthUsecase_GetHealthStatus(t *testing.T) {
	tts := []struct {
		name        string
		repository  stubHealthRepository
		hasPassword bool
		healthy     bool
	}{
		{name: "all good", hasPassword: true, healthy: true},
		{name: "no password", hasPassword: false, healthy: false},
		{name: "auth host down", repository: stubHealthRepository{authErr: errors.New("dial tcp")}, hasPassword: true},
		{name: "tournee host down", repository: stubHealthRepository{tourneeErr: errors.New("dial tcp")}, hasPassword: true},
	}

	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			usecase := HealthUsecase{
				sessions:         new(mocks.SessionOrchestrator),
				healthRepository: tt.repository,
				hasPassword:      tt.hasPassword,
			}

			status := usecase.GetHealthStatus(t.Context())

			assert.Equal(t, tt.healthy, status.IsHealthy())
			assert.Len(t, status.Statuses, 3)
			assert.Equal(t, models.CredentialCacheHealthItemName, status.Statuses[0].Name)
		})
	}
}
