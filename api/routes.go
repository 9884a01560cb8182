package api

import (
	"net/http"
	"time"

	limits "github.com/gin-contrib/size"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	timeout "github.com/vearne/gin-timeout"

	"github.com/deliveryrouting/courier-backend/usecases"
)

const defaultMaxRequestBodyBytes = 1 << 20

func timeoutMiddleware(duration time.Duration) gin.HandlerFunc {
	return timeout.Timeout(
		timeout.WithTimeout(duration),
		timeout.WithErrorHttpCode(http.StatusRequestTimeout),
		timeout.WithDefaultMsg("Request timeout"),
	)
}

func addRoutes(r *gin.Engine, conf Configuration, uc usecases.Usecases) {
	r.GET("/liveness", handleLivenessProbe(uc))
	r.GET("/health", handleHealth(uc))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	maxBodyBytes := conf.MaxRequestBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxRequestBodyBytes
	}

	router := r.Group("/api/colis-prive",
		limits.RequestSizeLimiter(maxBodyBytes),
		timeoutMiddleware(conf.DefaultTimeout))

	router.GET("/health", handleHealth(uc))
	router.POST("/auth", handleColisPriveAuth(uc))
	router.POST("/tournee", handleColisPriveTournee(uc))
	router.POST("/packages", handleColisPrivePackages(uc, conf.DefaultSociete))
	router.GET("/companies", handleColisPriveCompanies(uc))
}
