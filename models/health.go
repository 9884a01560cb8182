package models

type HealthItemName string

const (
	CredentialCacheHealthItemName HealthItemName = "credential_cache"
	CourierAuthHealthItemName     HealthItemName = "courier_auth"
	CourierTourneeHealthItemName  HealthItemName = "courier_tournee"
)

type HealthItemStatus struct {
	Name   HealthItemName
	Status bool
}

type HealthStatus struct {
	Statuses []HealthItemStatus
}

func (l HealthStatus) IsHealthy() bool {
	for _, status := range l.Statuses {
		if !status.Status {
			return false
		}
	}
	return true
}
