package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

// Handler registers a set of routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int
	DashboardCacheTTL time.Duration
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        Handler
	appointmentH Handler
	paymentH     Handler
	recordH      Handler
	dashboardH   Handler
	financeH     Handler
	patientH     Handler
	h            *handler.Handler
	config       Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	appointmentH Handler,
	paymentH Handler,
	recordH Handler,
	dashboardH Handler,
	financeH Handler,
	patientH Handler,
	h *handler.Handler,
	m *metrics.Metrics,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(m),
		middleware.Timeout(30*time.Second),
	)

	if config.RateLimitEnabled {
		engine.Use(middleware.RateLimit(config.RequestsPerSecond, config.Burst))
	}

	return &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		appointmentH: appointmentH,
		paymentH:     paymentH,
		recordH:      recordH,
		dashboardH:   dashboardH,
		financeH:     financeH,
		patientH:     patientH,
		h:            h,
		config:       config,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.h.LivenessCheck)
	r.engine.GET("/ready", r.h.ReadinessCheck)
	r.engine.GET("/metrics", r.h.MetricsHandler)

	api := r.engine.Group("/api/v1")

	// Public routes
	r.authH.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	cache := middleware.NewResponseCache(middleware.ResponseCacheConfig{
		TTL:      r.config.DashboardCacheTTL,
		Prefixes: []string{"/api/v1/dashboard", "/api/v1/finance"},
	})
	protected.Use(cache.Handle())

	r.appointmentH.RegisterRoutes(protected)
	r.paymentH.RegisterRoutes(protected)
	r.dashboardH.RegisterRoutes(protected)
	r.financeH.RegisterRoutes(protected)
	r.patientH.RegisterRoutes(protected)

	// Clinical writes stay off limits for the front desk.
	clinical := protected.Group("")
	clinical.Use(r.auth.RequireRole(model.RoleAdmin, model.RoleClinician))
	r.recordH.RegisterRoutes(clinical)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
