package dto

import (
	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/pure_utils"
)

type HealthStatusResponse struct {
	Healthy        bool                       `json:"healthy"`
	CachedSessions int                        `json:"cached_sessions"`
	Status         []HealthItemStatusResponse `json:"status"`
}

type HealthItemStatusResponse struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
}

func AdaptHealthItemStatus(status models.HealthItemStatus) HealthItemStatusResponse {
	return HealthItemStatusResponse{
		Name:    string(status.Name),
		Healthy: status.Status,
	}
}

func AdaptHealthStatus(status models.HealthStatus, cachedSessions int) HealthStatusResponse {
	return HealthStatusResponse{
		Healthy:        status.IsHealthy(),
		CachedSessions: cachedSessions,
		Status:         pure_utils.Map(status.Statuses, AdaptHealthItemStatus),
	}
}
