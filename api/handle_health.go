package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deliveryrouting/courier-backend/dto"
	"github.com/deliveryrouting/courier-backend/usecases"
)

func handleHealth(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		usecase := uc.NewHealthUsecase()
		status := usecase.GetHealthStatus(c.Request.Context())

		httpStatus := http.StatusOK
		if !status.IsHealthy() {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, dto.AdaptHealthStatus(status, usecase.CachedSessions()))
	}
}
