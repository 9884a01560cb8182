package models

import (
	"time"
)

const TourneeDateLayout = "2006-01-02"

type TourneeQuery struct {
	Key  AccountKey
	Date time.Time
}

func (q TourneeQuery) FormattedDate() string {
	return q.Date.Format(TourneeDateLayout)
}

type Tournee struct {
	Query       TourneeQuery
	Data        string
	TokenSource string
}

type PackageMetier string

const ColisMetier PackageMetier = "COLIS"

type DeliveryPackage struct {
	Id             string
	TrackingNumber string
	RecipientName  string
	Address        string
	Status         string
	Instructions   string
	Phone          string
	Priority       string

	Validation *AddressValidation
}

type TourneePackages struct {
	Query       TourneeQuery
	TokenSource string
	// Set when the courier reports a tournée without any pending package.
	CompletedTourneeCode string
	Packages             []DeliveryPackage
	Summary              AddressValidationSummary
}

func (p TourneePackages) IsCompleted() bool {
	return p.CompletedTourneeCode != ""
}
