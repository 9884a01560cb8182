package dto

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"github.com/deliveryrouting/courier-backend/models"
)

const TimestampLayout = time.RFC3339

type TourneeRequest struct {
	Username  string      `json:"username" binding:"required"`
	Societe   string      `json:"societe" binding:"required"`
	Matricule null.String `json:"matricule"`
	Date      null.String `json:"date"`
}

func AdaptTourneeQuery(input TourneeRequest) (models.TourneeQuery, error) {
	date, err := parseTourneeDate(input.Date)
	if err != nil {
		return models.TourneeQuery{}, err
	}
	return models.TourneeQuery{
		Key:  models.NewAccountKey(input.Username, input.Societe),
		Date: date,
	}, nil
}

// A zero date means "today" to the usecases.
func parseTourneeDate(input null.String) (time.Time, error) {
	if !input.Valid || input.String == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(models.TourneeDateLayout, input.String)
	if err != nil {
		return time.Time{}, errors.Wrapf(models.BadParameterError,
			"date %q is not in the YYYY-MM-DD format", input.String)
	}
	return date, nil
}

type TourneeResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      string          `json:"data"`
	Metadata  TourneeMetadata `json:"metadata"`
	Timestamp string          `json:"timestamp"`
}

type TourneeMetadata struct {
	Matricule   string `json:"matricule"`
	Societe     string `json:"societe"`
	Date        string `json:"date"`
	TokenSource string `json:"token_source"`
}

func AdaptTourneeResponse(input TourneeRequest, tournee models.Tournee, timestamp string) TourneeResponse {
	return TourneeResponse{
		Success: true,
		Message: "Tournée fetched from Colis Privé",
		Data:    tournee.Data,
		Metadata: TourneeMetadata{
			Matricule:   input.Matricule.ValueOrZero(),
			Societe:     tournee.Query.Key.CarrierAccountId,
			Date:        tournee.Query.FormattedDate(),
			TokenSource: tournee.TokenSource,
		},
		Timestamp: timestamp,
	}
}
