package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/infrastructure/config"
	"github.com/catalogsite/backend/internal/infrastructure/logger"
	"github.com/catalogsite/backend/internal/interfaces/http/middleware"
)

// EngineConfig holds what NewEngine needs besides the routes
type EngineConfig struct {
	HTTP           config.HTTPConfig
	Logger         *zap.Logger
	Meter          metric.Meter // nil disables HTTP metrics
	TracingEnabled bool
	ServiceName    string
	Release        bool
}

// NewEngine creates a gin engine with the standard middleware chain:
// recovery, request id, tracing, request logging, metrics, CORS and security headers
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(cfg.Meter))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.Secure())

	return engine, nil
}
