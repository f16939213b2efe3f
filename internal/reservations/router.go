package reservations

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(router *gin.RouterGroup, controller Controller) {
	// Event-scoped actions for the logged-in user
	eventScoped := router.Group("/events/:id")
	eventScoped.Use(middleware.JWTAuth())
	{
		eventScoped.POST("/reservations", controller.Reserve)              // POST /api/v1/events/:id/reservations
		eventScoped.DELETE("/reservations", controller.Cancel)             // DELETE /api/v1/events/:id/reservations
		eventScoped.GET("/reservations/me", controller.GetMyReservation)   // GET /api/v1/events/:id/reservations/me
		eventScoped.GET("/waitlist/position", controller.WaitlistPosition) // GET /api/v1/events/:id/waitlist/position
		eventScoped.DELETE("/waitlist", controller.LeaveWaitlist)          // DELETE /api/v1/events/:id/waitlist
	}

	// The caller's own reservations and history
	me := router.Group("/me")
	me.Use(middleware.JWTAuth())
	{
		me.GET("/reservations", controller.ListMyReservations) // GET /api/v1/me/reservations
		me.GET("/logs", controller.ListMyLogs)                 // GET /api/v1/me/logs
	}

	// Admin routes - require admin role
	admin := router.Group("/admin/events")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("/:id/reservations", controller.ListEventReservations) // GET /api/v1/admin/events/:id/reservations
	}
}
