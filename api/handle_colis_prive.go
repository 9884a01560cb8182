package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deliveryrouting/courier-backend/dto"
	"github.com/deliveryrouting/courier-backend/usecases"
)

func handleColisPriveAuth(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var input dto.ColisPriveAuthRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			presentBindingError(c, err)
			return
		}

		creds := dto.AdaptCourierCredentials(input)
		usecase := uc.NewTourneeUsecase()
		result, err := usecase.Authenticate(ctx, creds)
		if presentError(c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.AdaptColisPriveAuthResponse(creds.Key, result, timestamp()))
	}
}

func handleColisPriveTournee(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var input dto.TourneeRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			presentBindingError(c, err)
			return
		}
		query, err := dto.AdaptTourneeQuery(input)
		if presentError(c, err) {
			return
		}

		usecase := uc.NewTourneeUsecase()
		tournee, err := usecase.GetTournee(ctx, query)
		if presentError(c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.AdaptTourneeResponse(input, tournee, timestamp()))
	}
}

func handleColisPrivePackages(uc usecases.Usecases, defaultSociete string) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var input dto.PackagesRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			presentBindingError(c, err)
			return
		}
		query, err := dto.AdaptPackagesQuery(input, defaultSociete)
		if presentError(c, err) {
			return
		}

		usecase := uc.NewTourneeUsecase()
		packages, err := usecase.GetPackages(ctx, query)
		if presentError(c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.AdaptPackagesResponse(packages, timestamp()))
	}
}

func handleColisPriveCompanies(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		usecase := uc.NewCompaniesUsecase()
		companies := usecase.ListCompanies(c.Request.Context())
		c.JSON(http.StatusOK, dto.AdaptCompanyListResponse(companies))
	}
}
