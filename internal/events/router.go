package events

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller) {
	// Public routes - anyone can browse events
	publicEvents := router.Group("/events")
	{
		publicEvents.GET("", controller.GetAllEvents) // GET /api/v1/events
		publicEvents.GET("/:id", controller.GetEvent) // GET /api/v1/events/:id
	}

	// Admin routes - require a valid token and the admin role
	adminEvents := router.Group("/admin/events")
	adminEvents.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminEvents.POST("", controller.CreateEvent)    // POST /api/v1/admin/events
		adminEvents.PUT("/:id", controller.UpdateEvent) // PUT /api/v1/admin/events/:id
	}
}
