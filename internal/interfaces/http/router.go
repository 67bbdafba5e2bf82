// Package http wires the engine's HTTP surface: router, middleware, and the
// server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/interfaces/http/handlers"
	"github.com/granite-grc/granite/internal/interfaces/http/middleware"
)

// RouterDeps holds everything the router mounts. MetricsHandler and Observer
// are optional; Health is optional for test routers.
type RouterDeps struct {
	Risks          *handlers.RiskHandler
	Register       *handlers.RegisterHandler
	Scans          *handlers.ScanHandler
	Health         *handlers.HealthHandler
	Logger         logging.Logger
	CORS           middleware.CORSConfig
	Observer       middleware.HTTPObserver
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine with the platform middleware stack and all
// v1 routes mounted.
func NewRouter(mode string, deps RouterDeps) *gin.Engine {
	gin.SetMode(ginMode(mode))

	r := gin.New()
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogging(log, "/health", "/readyz", deps.MetricsPath))
	r.Use(middleware.CORS(deps.CORS))
	if deps.Observer != nil {
		r.Use(middleware.Metrics(deps.Observer))
	}

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.MetricsHandler != nil && deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	if deps.Risks != nil {
		deps.Risks.Register(v1)
	}
	if deps.Register != nil {
		deps.Register.Register(v1)
	}
	if deps.Scans != nil {
		deps.Scans.Register(v1)
	}
	return r
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
