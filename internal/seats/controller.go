package seats

import (
	"context"
	"errors"
	"net/http"

	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	// ErrEventNotFound is returned by an AvailabilityService for an unknown event
	ErrEventNotFound = errors.New("event not found")
	// ErrBusy means the event stayed locked past the operation timeout
	ErrBusy = errors.New("event busy")
)

// AvailabilityService produces the seat map of an event
type AvailabilityService interface {
	GetSeatAvailability(ctx context.Context, eventID uuid.UUID) (*Grid, error)
}

type Controller struct {
	service AvailabilityService
}

func NewController(service AvailabilityService) *Controller {
	return &Controller{service: service}
}

// GetSeatMap godoc
// @Summary Seat map of an event
// @Tags seats
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Failure 503 {object} response.StandardApiResponse
// @Router /events/{id}/seats [get]
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	grid, err := c.service.GetSeatAvailability(ctx.Request.Context(), eventID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrEventNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, ErrBusy):
			statusCode = http.StatusServiceUnavailable
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get seat map", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", grid.ToResponse(), nil)
}
