package seats

import (
	"github.com/gin-gonic/gin"
)

// SetupSeatRoutes registers the public seat map view
func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	events := rg.Group("/events")
	{
		events.GET("/:id/seats", controller.GetSeatMap) // GET /api/v1/events/:id/seats
	}
}
