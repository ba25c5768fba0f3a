package apiroutes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zkkeyless/go-keyless-prover/api"
	"github.com/zkkeyless/go-keyless-prover/api/interceptors"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/metrics"
)

// REST API routes
func ConfigRoutes(router *gin.Engine, proverApi *api.ProverApi) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	corsConfig := cors.DefaultConfig()
	if len(global.Conf.Cors.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = global.Conf.Cors.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthCheckApi := api.NewHealthCheckAPI()

	// PUBLIC ROOT API
	rootPublicApi := router.Group("/")
	{
		rootPublicApi.GET("healthcheck", healthCheckApi.HealthCheck)
	}

	// PROVER API
	proverGroup := router.Group("/v0", metrics.MetricsMiddleware(), interceptors.SessionLogger())
	{
		proverGroup.POST("/prove", proverApi.Prove)
	}

	router.NoRoute(api.NotFound)
	return router
}
