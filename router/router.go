// Package router assembles the gin engine: ambient middleware (logging,
// CORS, gzip, optional tracing and metrics) plus the single catch-all route
// into the request pipeline.
package router

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Laisky/gemini-keypool-proxy/common/config"
	"github.com/Laisky/gemini-keypool-proxy/controller"
)

// New builds the gin engine that fronts the proxy: every path and method
// routes to pipeline.Handle (apart from GET /metrics when metrics are
// enabled), since dialect detection happens inside the pipeline rather than
// at the routing layer.
func New(cfg *config.Config, logger glog.Logger, pipeline *controller.Pipeline) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if cfg.EnableTracing {
		engine.Use(otelgin.Middleware("gemini-keypool-proxy"))
	}

	engine.Use(gmw.NewLoggerMiddleware(
		gmw.WithLevel(cfg.LogLevel),
		gmw.WithLogger(logger.Named("gin")),
	))

	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:    []string{"*"},
	}))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.EnableMetrics {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	engine.NoRoute(pipeline.Handle)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		engine.Handle(method, "/v1/chat/completions", pipeline.Handle)
	}

	return engine
}
