package dto

import (
	"github.com/deliveryrouting/courier-backend/models"
)

type ColisPriveAuthRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Societe  string `json:"societe" binding:"required"`
}

func AdaptCourierCredentials(input ColisPriveAuthRequest) models.CourierCredentials {
	return models.CourierCredentials{
		Key:      models.NewAccountKey(input.Username, input.Societe),
		Password: input.Password,
	}
}

type ColisPriveAuthResponse struct {
	Success         bool                     `json:"success"`
	Authentication  ColisPriveAuthentication `json:"authentication"`
	CredentialsUsed CredentialsUsed          `json:"credentials_used"`
	Timestamp       string                   `json:"timestamp"`
}

type ColisPriveAuthentication struct {
	Token     string `json:"token"`
	Matricule string `json:"matricule"`
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at"`
}

// Never carries the password.
type CredentialsUsed struct {
	Username string `json:"username"`
	Societe  string `json:"societe"`
}

func AdaptColisPriveAuthResponse(key models.AccountKey, result models.SessionTokenResult, timestamp string) ColisPriveAuthResponse {
	return ColisPriveAuthResponse{
		Success: true,
		Authentication: ColisPriveAuthentication{
			Token:     result.Token.Value,
			Matricule: key.OperatorId,
			Message:   "Authenticated with Colis Privé",
			ExpiresAt: result.Token.ExpiresAt.UTC().Format(TimestampLayout),
		},
		CredentialsUsed: CredentialsUsed{
			Username: key.OperatorId,
			Societe:  key.CarrierAccountId,
		},
		Timestamp: timestamp,
	}
}
