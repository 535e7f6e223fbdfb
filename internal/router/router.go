package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wipay/subscriber-api/internal/handler"
	billingHandler "github.com/wipay/subscriber-api/internal/handler/billing"
	chatHandler "github.com/wipay/subscriber-api/internal/handler/chat"
	customerHandler "github.com/wipay/subscriber-api/internal/handler/customer"
	healthHandler "github.com/wipay/subscriber-api/internal/handler/health"
	notificationHandler "github.com/wipay/subscriber-api/internal/handler/notification"
	"github.com/wipay/subscriber-api/internal/middleware"
	"github.com/wipay/subscriber-api/internal/model"
	"github.com/wipay/subscriber-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CatalogTTL     time.Duration
	CORSConfig     middleware.CORSConfig
}

type Router struct {
	engine        *gin.Engine
	validator     middleware.TokenValidator
	authH         Handler
	healthH       *healthHandler.Handler
	chatH         *chatHandler.Handler
	notificationH *notificationHandler.Handler
	customerH     *customerHandler.Handler
	billingH      *billingHandler.Handler
	h             *handler.Handler
	config        Config
}

func NewRouter(
	validator middleware.TokenValidator,
	authH Handler,
	healthH *healthHandler.Handler,
	chatH *chatHandler.Handler,
	notificationH *notificationHandler.Handler,
	customerH *customerHandler.Handler,
	billingH *billingHandler.Handler,
	h *handler.Handler,
	m *metrics.Metrics,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.CatalogTTL <= 0 {
		config.CatalogTTL = time.Minute
	}

	r := &Router{
		engine:        engine,
		validator:     validator,
		authH:         authH,
		healthH:       healthH,
		chatH:         chatH,
		notificationH: notificationH,
		customerH:     customerH,
		billingH:      billingH,
		h:             h,
		config:        config,
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		m.HTTPMiddleware(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.h.MetricsHandler)

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	// Public routes
	public := api.Group("")
	public.Use(middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}))
	r.authH.RegisterRoutes(public)

	catalog := public.Group("")
	catalog.Use(middleware.ResponseCache(r.config.CatalogTTL))
	r.customerH.RegisterCatalogRoutes(catalog)

	// Protected routes
	protected := api.Group("")
	protected.Use(
		middleware.Auth(r.validator),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
	)
	r.chatH.RegisterRoutes(protected)
	r.notificationH.RegisterRoutes(protected)
	r.billingH.RegisterRoutes(protected)

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(model.UserRoleAdmin))
	r.customerH.RegisterRoutes(admin)

	// Streaming routes stay outside the timeout middleware; they live as long
	// as the client connection.
	streams := api.Group("")
	streams.Use(middleware.Auth(r.validator))
	r.chatH.RegisterStreamRoutes(streams)
	r.notificationH.RegisterStreamRoutes(streams)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
