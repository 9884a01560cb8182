package httpmodels

import (
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"

	"github.com/deliveryrouting/courier-backend/models"
)

// AdaptColisPriveCompanies reads the referential answer, which is either a bare array of
// {code, libelle} items or an object holding such an array under some key.
func AdaptColisPriveCompanies(body []byte) ([]models.Company, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrap(models.UpstreamUnavailableError, "referentiel response is not valid json")
	}
	doc := gjson.ParseBytes(body)

	items := doc
	if doc.IsObject() {
		items = gjson.Result{}
		doc.ForEach(func(_, value gjson.Result) bool {
			if value.IsArray() {
				items = value
				return false
			}
			return true
		})
	}
	if !items.IsArray() {
		return nil, errors.Wrap(models.UpstreamUnavailableError, "no company list in referentiel response")
	}

	companies := make([]models.Company, 0, len(items.Array()))
	items.ForEach(func(_, item gjson.Result) bool {
		code := stringOrNumber(item.Get("code"))
		if code == "" {
			return true
		}
		companies = append(companies, models.Company{
			Code:        code,
			Name:        item.Get("libelle").String(),
			Description: item.Get("description").String(),
		})
		return true
	})
	return companies, nil
}
