package models

type ValidationMethod string

const (
	ValidationMethodOriginal            ValidationMethod = "Original"
	ValidationMethodCleaned             ValidationMethod = "Cleaned"
	ValidationMethodCompletedWithSector ValidationMethod = "CompletedWithSector"
	ValidationMethodPartialSearch       ValidationMethod = "PartialSearch"
	ValidationMethodManualRequired      ValidationMethod = "ManualRequired"
)

type ValidationConfidence string

const (
	ConfidenceHigh   ValidationConfidence = "High"
	ConfidenceMedium ValidationConfidence = "Medium"
	ConfidenceLow    ValidationConfidence = "Low"
	ConfidenceNone   ValidationConfidence = "None"
)

type AddressValidation struct {
	Latitude         *float64
	Longitude        *float64
	FormattedAddress *string
	Method           ValidationMethod
	Confidence       ValidationConfidence
	Warnings         []string
}

type AddressValidationSummary struct {
	TotalPackages  int
	AutoValidated  int
	CleanedAuto    int
	CompletedAuto  int
	PartialFound   int
	RequiresManual int
	Warnings       []string
}

func (s *AddressValidationSummary) Record(method ValidationMethod) {
	switch method {
	case ValidationMethodOriginal:
		s.AutoValidated++
	case ValidationMethodCleaned:
		s.CleanedAuto++
	case ValidationMethodCompletedWithSector:
		s.CompletedAuto++
	case ValidationMethodPartialSearch:
		s.PartialFound++
	default:
		s.RequiresManual++
	}
}
