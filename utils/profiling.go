package utils

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"

	"cloud.google.com/go/profiler"
	"github.com/gin-gonic/gin"
)

// SetupProfilerEndpoints enables continuous profiling ("gcp") or token protected pprof
// endpoints ("http") depending on DEBUG_PROFILING_MODE.
func SetupProfilerEndpoints(ctx context.Context, r *gin.Engine, serviceName, serviceVersion, gcpProjectId string) {
	switch os.Getenv("DEBUG_PROFILING_MODE") {
	case "gcp":
		cfg := profiler.Config{
			ProjectID:      gcpProjectId,
			Service:        serviceName,
			ServiceVersion: serviceVersion,
		}
		if err := profiler.Start(cfg); err != nil {
			LoggerFromContext(ctx).WarnContext(ctx, "could not start the gcp profiler", "error", err.Error())
		}

	case "http":
		token := os.Getenv("DEBUG_PROFILING_TOKEN")
		pp := r.Group("/debug/pprof")
		pp.Use(func(c *gin.Context) {
			if token == "" || c.Request.Header.Get("authorization") != "Bearer "+token {
				c.AbortWithStatus(http.StatusUnauthorized)
			}
		})

		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pp.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		pp.GET("/block", gin.WrapH(pprof.Handler("block")))
		pp.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	}
}
