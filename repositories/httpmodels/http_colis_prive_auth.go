package httpmodels

import "github.com/deliveryrouting/courier-backend/models"

type HTTPColisPriveLoginRequest struct {
	Login    string                   `json:"login"`
	Password string                   `json:"password"`
	Societe  string                   `json:"societe"`
	Commun   HTTPColisPriveLoginCommun `json:"commun"`
}

type HTTPColisPriveLoginCommun struct {
	DureeTokenInHour int `json:"dureeTokenInHour"`
}

func AdaptColisPriveLoginRequest(creds models.CourierCredentials) HTTPColisPriveLoginRequest {
	return HTTPColisPriveLoginRequest{
		Login:    creds.Login(),
		Password: creds.Password,
		Societe:  creds.Key.CarrierAccountId,
		Commun:   HTTPColisPriveLoginCommun{DureeTokenInHour: creds.ValidityHours},
	}
}
