package dto

import (
	"fmt"

	"github.com/guregu/null/v5"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/pure_utils"
)

type PackagesRequest struct {
	Matricule string      `json:"matricule" binding:"required"`
	Societe   null.String `json:"societe"`
	Date      null.String `json:"date"`
}

// AdaptPackagesQuery uses defaultSociete when the request does not name a carrier account.
func AdaptPackagesQuery(input PackagesRequest, defaultSociete string) (models.TourneeQuery, error) {
	date, err := parseTourneeDate(input.Date)
	if err != nil {
		return models.TourneeQuery{}, err
	}
	societe := input.Societe.ValueOrZero()
	if societe == "" {
		societe = defaultSociete
	}
	return models.TourneeQuery{
		Key:  models.NewAccountKey(input.Matricule, societe),
		Date: date,
	}, nil
}

type PackagesResponse struct {
	Success           bool                         `json:"success"`
	Message           string                       `json:"message"`
	Packages          []PackageDto                 `json:"packages"`
	AddressValidation *AddressValidationSummaryDto `json:"address_validation"`
	Metadata          TourneeMetadata              `json:"metadata"`
	Timestamp         string                       `json:"timestamp"`
}

type PackageDto struct {
	Id                   string      `json:"id"`
	TrackingNumber       string      `json:"tracking_number"`
	RecipientName        string      `json:"recipient_name"`
	Address              string      `json:"address"`
	Status               string      `json:"status"`
	Instructions         string      `json:"instructions"`
	Phone                string      `json:"phone"`
	Priority             string      `json:"priority"`
	Latitude             null.Float  `json:"latitude"`
	Longitude            null.Float  `json:"longitude"`
	FormattedAddress     null.String `json:"formatted_address"`
	ValidationMethod     null.String `json:"validation_method"`
	ValidationConfidence null.String `json:"validation_confidence"`
	ValidationWarnings   []string    `json:"validation_warnings"`
}

type AddressValidationSummaryDto struct {
	TotalPackages  int      `json:"total_packages"`
	AutoValidated  int      `json:"auto_validated"`
	CleanedAuto    int      `json:"cleaned_auto"`
	CompletedAuto  int      `json:"completed_auto"`
	PartialFound   int      `json:"partial_found"`
	RequiresManual int      `json:"requires_manual"`
	Warnings       []string `json:"warnings"`
}

func AdaptPackageDto(p models.DeliveryPackage) PackageDto {
	out := PackageDto{
		Id:             p.Id,
		TrackingNumber: p.TrackingNumber,
		RecipientName:  p.RecipientName,
		Address:        p.Address,
		Status:         p.Status,
		Instructions:   p.Instructions,
		Phone:          p.Phone,
		Priority:       p.Priority,
	}
	if v := p.Validation; v != nil {
		out.Latitude = null.FloatFromPtr(v.Latitude)
		out.Longitude = null.FloatFromPtr(v.Longitude)
		out.FormattedAddress = null.StringFromPtr(v.FormattedAddress)
		out.ValidationMethod = null.StringFrom(string(v.Method))
		out.ValidationConfidence = null.StringFrom(string(v.Confidence))
		out.ValidationWarnings = v.Warnings
	}
	return out
}

func AdaptAddressValidationSummaryDto(s models.AddressValidationSummary) *AddressValidationSummaryDto {
	warnings := s.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &AddressValidationSummaryDto{
		TotalPackages:  s.TotalPackages,
		AutoValidated:  s.AutoValidated,
		CleanedAuto:    s.CleanedAuto,
		CompletedAuto:  s.CompletedAuto,
		PartialFound:   s.PartialFound,
		RequiresManual: s.RequiresManual,
		Warnings:       warnings,
	}
}

func AdaptPackagesResponse(result models.TourneePackages, timestamp string) PackagesResponse {
	metadata := TourneeMetadata{
		Matricule:   result.Query.Key.OperatorId,
		Societe:     result.Query.Key.CarrierAccountId,
		Date:        result.Query.FormattedDate(),
		TokenSource: result.TokenSource,
	}

	if result.IsCompleted() {
		return PackagesResponse{
			Success:   true,
			Message:   fmt.Sprintf("Tournée %s completed, no pending package", result.CompletedTourneeCode),
			Packages:  []PackageDto{},
			Metadata:  metadata,
			Timestamp: timestamp,
		}
	}

	return PackagesResponse{
		Success:           true,
		Message:           fmt.Sprintf("%d packages fetched", len(result.Packages)),
		Packages:          pure_utils.Map(result.Packages, AdaptPackageDto),
		AddressValidation: AdaptAddressValidationSummaryDto(result.Summary),
		Metadata:          metadata,
		Timestamp:         timestamp,
	}
}
