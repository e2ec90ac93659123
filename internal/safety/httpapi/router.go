package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	httpH "github.com/yungbote/contentsafety/internal/safety/httpapi/handlers"
	httpMW "github.com/yungbote/contentsafety/internal/safety/httpapi/middleware"
	"github.com/yungbote/contentsafety/internal/safety/ratelimit"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	Limiter     *ratelimit.Limiter
	CORSOrigins []string
	ServiceName string

	HealthHandler  *httpH.HealthHandler
	CheckHandler   *httpH.CheckHandler
	SessionHandler *httpH.SessionHandler
	RulesHandler   *httpH.RulesHandler

	// AdminAuth guards /v1/admin; nil leaves the admin routes unregistered.
	AdminAuth *httpMW.AdminAuth
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(httpMW.RateLimit(cfg.Limiter, cfg.Metrics))
	{
		// Stateless checks
		if cfg.CheckHandler != nil {
			v1.POST("/check", cfg.CheckHandler.Check)
			v1.POST("/compliance/check", cfg.CheckHandler.Compliance)
		}

		// Sessions (memoized checks + dismissal)
		if cfg.SessionHandler != nil {
			v1.POST("/sessions", cfg.SessionHandler.Create)
			v1.GET("/sessions/:id", cfg.SessionHandler.Get)
			v1.POST("/sessions/:id/check", cfg.SessionHandler.Check)
			v1.POST("/sessions/:id/dismiss", cfg.SessionHandler.Dismiss)
			v1.DELETE("/sessions/:id", cfg.SessionHandler.Delete)
		}

		// Rules
		if cfg.RulesHandler != nil {
			v1.GET("/rules", cfg.RulesHandler.List)
		}
	}

	if cfg.AdminAuth != nil && cfg.RulesHandler != nil {
		admin := v1.Group("/admin")
		admin.Use(cfg.AdminAuth.Require())
		admin.POST("/rules/invalidate", cfg.RulesHandler.Invalidate)
	}

	return r
}
