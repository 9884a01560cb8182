package utils

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

const RequestIdHeader = "X-Request-Id"

func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger, found := ctx.Value(ContextKeyLogger).(*slog.Logger)
	if !found {
		return slog.Default()
	}
	return logger
}

func StoreLoggerInContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

func StoreLoggerInContextMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		l := logger
		if requestId := RequestIdFromContext(ctx); requestId != "" {
			l = l.With(slog.String("request_id", requestId))
		}
		c.Request = c.Request.WithContext(StoreLoggerInContext(ctx, l))
		c.Next()
	}
}

func RequestIdFromContext(ctx context.Context) string {
	requestId, _ := ctx.Value(ContextKeyRequestId).(string)
	return requestId
}

func StoreRequestIdInContext(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestId, requestId)
}
