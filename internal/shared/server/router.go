package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/analyses"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/services/health"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// RouterDeps are the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	AnalysisHandler *analyses.Handler
	DocumentHandler *documents.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	metrics.Register(api)

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
