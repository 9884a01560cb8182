package httpmodels

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"

	"github.com/deliveryrouting/courier-backend/models"
)

const unknownTourneeCode = "unknown"

type HTTPColisPriveTourneeRequest struct {
	Matricule string `json:"Matricule"`
	DateDebut string `json:"DateDebut"`
}

func AdaptColisPriveTourneeRequest(query models.TourneeQuery) HTTPColisPriveTourneeRequest {
	return HTTPColisPriveTourneeRequest{
		Matricule: query.Key.Matricule(),
		DateDebut: query.FormattedDate(),
	}
}

// AdaptColisPriveTourneePackages reads the parcels of a tournée document. Only "COLIS" entries of
// LstLieuArticle are kept. When there are none and the document describes the tournée itself,
// the tournée code is returned so that callers can report it as completed.
func AdaptColisPriveTourneePackages(data string) ([]models.DeliveryPackage, string, error) {
	if !gjson.Valid(data) {
		return nil, "", errors.Wrap(models.UpstreamUnavailableError, "tournee response is not valid json")
	}
	doc := gjson.Parse(data)

	packages := make([]models.DeliveryPackage, 0)
	doc.Get("LstLieuArticle").ForEach(func(_, article gjson.Result) bool {
		if article.Get("metier").String() != string(models.ColisMetier) {
			return true
		}
		id := stringOrNumber(article.Get("idArticle"))
		if id == "" {
			return true
		}
		packages = append(packages, models.DeliveryPackage{
			Id:             id,
			TrackingNumber: article.Get("refExterneArticle").String(),
			RecipientName:  article.Get("nomDestinataire").String(),
			Address: formatAddress(
				article.Get("LibelleVoieOrigineDestinataire").String(),
				stringOrNumber(article.Get("codePostalOrigineDestinataire")),
				article.Get("LibelleLocaliteOrigineDestinataire").String(),
			),
			Status:       article.Get("codeStatutArticle").String(),
			Instructions: article.Get("PreferenceLivraison").String(),
			Phone:        article.Get("telephoneMobileDestinataire").String(),
			Priority:     stringOrNumber(article.Get("priorite")),
		})
		return true
	})

	completedCode := ""
	if infos := doc.Get("InfosTournee"); len(packages) == 0 && infos.Exists() {
		completedCode = infos.Get("codeTourneeDistribution").String()
		if completedCode == "" {
			completedCode = unknownTourneeCode
		}
	}
	return packages, completedCode, nil
}

func stringOrNumber(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

// "street, postcode city", leaving out the missing parts
func formatAddress(street, postcode, city string) string {
	locality := strings.TrimSpace(postcode + " " + city)
	street = strings.TrimSpace(street)
	switch {
	case street == "":
		return locality
	case locality == "":
		return street
	default:
		return street + ", " + locality
	}
}
