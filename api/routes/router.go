// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"ticketly/docs"
	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/reservations"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/shared/middleware"
	"ticketly/pkg/logger"
	"ticketly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Config      *config.Config
	DB          *database.DB
	Auth        auth.Service
	Events      events.Service
	Engine      *reservations.Engine
	RateLimiter *ratelimit.RateLimiter
	Logger      *logger.Logger
}

// Router holds all route dependencies
type Router struct {
	deps Dependencies
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	return &Router{deps: deps}
}

// Engine builds the gin engine with the global middleware chain and every route
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()

	// Request IDs, request logging and panic recovery
	engine.Use(middleware.RequestID(), middleware.RequestLogger(r.deps.Logger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		// Allow every origin dynamically
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if r.deps.RateLimiter != nil {
		engine.Use(ratelimit.Middleware(r.deps.RateLimiter))
	}

	r.SetupRoutes(engine)
	return engine
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API documentation
	docs.SwaggerInfo.BasePath = r.deps.Config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := engine.Group(r.deps.Config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)
		r.setupEventRoutes(api)
		r.setupSeatRoutes(api)
		r.setupReservationRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if r.deps.DB != nil {
			if err := r.deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "ticketly",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketly",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.deps.Config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.deps.Config.APIVersion,
			"storage":     r.deps.Config.Reservation.StorageBackend,
			"waitlist":    r.deps.Config.Reservation.WaitlistBackend,
			"broker":      r.deps.Config.Notifications.Broker,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	// Initialize auth dependencies
	authController := auth.NewController(r.deps.Auth)
	auth.NewRouter(authController, r.deps.Config).SetupRoutes(rg)
}

// setupEventRoutes configures the public catalog and admin event management
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	events.SetupEventRoutes(rg, events.NewController(r.deps.Events))
}

// setupSeatRoutes configures the seat map view
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	seats.SetupSeatRoutes(rg, seats.NewController(r.deps.Engine))
}

// setupReservationRoutes configures reserve, cancel, waitlist and history routes
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	reservations.SetupReservationRoutes(rg, reservations.NewController(r.deps.Engine))
}
