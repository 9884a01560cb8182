package api

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/deliveryrouting/courier-backend/dto"
	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/utils"
)

func timestamp() string {
	return time.Now().UTC().Format(dto.TimestampLayout)
}

func errorResponse(err error, code dto.ErrorCode) dto.APIErrorResponse {
	return dto.APIErrorResponse{
		Success:   false,
		Error:     dto.APIError{Message: err.Error(), Code: code},
		Timestamp: timestamp(),
	}
}

func presentError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	ctx := c.Request.Context()
	logger := utils.LoggerFromContext(ctx)

	switch {
	case errors.Is(err, models.ErrMissingCourierPassword):
		logger.WarnContext(ctx, "no courier password configured", "error", err.Error())
		c.JSON(http.StatusBadRequest, errorResponse(err, dto.MissingCourier))

	case errors.Is(err, models.BadParameterError):
		logger.InfoContext(ctx, "bad parameter", "error", err.Error())
		c.JSON(http.StatusBadRequest, errorResponse(err, dto.BadRequest))

	// most specific courier session errors first: a timeout is also an auth failure
	case errors.Is(err, models.ErrUpstreamAuthTimeout):
		logger.WarnContext(ctx, "courier authentication timed out", "error", err.Error())
		c.JSON(http.StatusUnauthorized, errorResponse(err, dto.AuthTimeout))

	case errors.Is(err, models.ErrUpstreamAuthFailed):
		logger.WarnContext(ctx, "courier authentication failed", "error", err.Error())
		c.JSON(http.StatusUnauthorized, errorResponse(err, dto.AuthFailed))

	case errors.Is(err, models.ErrUpstreamTokenRejected):
		logger.WarnContext(ctx, "courier rejected the session token", "error", err.Error())
		c.JSON(http.StatusUnauthorized, errorResponse(err, dto.TokenRejected))

	case errors.Is(err, models.UnAuthorizedError):
		c.JSON(http.StatusUnauthorized, errorResponse(err, dto.Unauthorized))

	case errors.Is(err, models.ForbiddenError):
		c.JSON(http.StatusForbidden, errorResponse(err, dto.Forbidden))

	case errors.Is(err, models.NotFoundError):
		c.JSON(http.StatusNotFound, errorResponse(err, dto.NotFound))

	case errors.Is(err, models.ConflictError):
		c.JSON(http.StatusConflict, errorResponse(err, dto.Conflict))

	case errors.Is(err, models.UpstreamUnavailableError):
		logger.WarnContext(ctx, "courier platform unavailable", "error", err.Error())
		c.JSON(http.StatusBadGateway, errorResponse(err, dto.UpstreamUnavailable))

	case errors.Is(err, models.ErrResponseUnparseable):
		utils.LogAndReportSentryError(ctx, err)
		c.JSON(http.StatusInternalServerError, errorResponse(err, dto.UnparseableResponse))

	default:
		utils.LogAndReportSentryError(ctx, err)
		c.JSON(http.StatusInternalServerError, errorResponse(
			errors.New("an unexpected error occurred"), dto.InternalError))
	}
	return true
}

// presentBindingError renders a request body that failed validation.
func presentBindingError(c *gin.Context, err error) {
	presentError(c, errors.Wrap(models.BadParameterError, err.Error()))
}
