package models

// Company is a carrier account ("société") known to the courier referential.
type Company struct {
	Code        string
	Name        string
	Description string
}

type CompanyList struct {
	Companies []Company
	// False when the list comes from the configured fallback instead of the courier referential.
	FromUpstream bool
}
