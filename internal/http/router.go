package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Kailou1991/ahis-001-sub001/internal/http/handlers"
	httpMW "github.com/Kailou1991/ahis-001-sub001/internal/http/middleware"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins string

	HealthHandler *httpH.HealthHandler
	SyncHandler   *httpH.SyncHandler
	SourceHandler *httpH.SourceHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Sync
		if cfg.SyncHandler != nil {
			api.POST("/sync", cfg.SyncHandler.RunSync)
			api.GET("/sync/runs", cfg.SyncHandler.ListRuns)
			api.GET("/sync/runs/:id/quarantine", cfg.SyncHandler.ListQuarantine)
		}

		// Sources
		if cfg.SourceHandler != nil {
			api.GET("/sources", cfg.SourceHandler.ListSources)
		}
	}

	return r
}
