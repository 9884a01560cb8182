package dto

import (
	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/pure_utils"
)

type CompanyDto struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type CompanyListResponse struct {
	Success   bool         `json:"success"`
	Companies []CompanyDto `json:"companies"`
	Message   string       `json:"message"`
}

func AdaptCompanyDto(c models.Company) CompanyDto {
	out := CompanyDto{Code: c.Code, Name: c.Name}
	if c.Description != "" {
		out.Description = &c.Description
	}
	return out
}

func AdaptCompanyListResponse(list models.CompanyList) CompanyListResponse {
	message := "Companies fetched from Colis Privé"
	if !list.FromUpstream {
		message = "Colis Privé referential unavailable, serving the configured company list"
	}
	return CompanyListResponse{
		Success:   true,
		Companies: pure_utils.Map(list.Companies, AdaptCompanyDto),
		Message:   message,
	}
}
