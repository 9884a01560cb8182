package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deliveryrouting/courier-backend/utils"
)

// RequestId reuses the caller's request id when it is a valid UUID and generates one otherwise.
// The id is echoed back in the response headers and forwarded on calls to the courier platform.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(utils.RequestIdHeader)
		if _, err := uuid.Parse(requestId); err != nil {
			requestId = uuid.NewString()
		}
		c.Header(utils.RequestIdHeader, requestId)
		c.Request = c.Request.WithContext(utils.StoreRequestIdInContext(c.Request.Context(), requestId))
		c.Next()
	}
}
