package events

import (
	"errors"
	"net/http"

	"ticketly/internal/seats"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	CreateEvent(c *gin.Context)
	GetEvent(c *gin.Context)
	UpdateEvent(c *gin.Context)
	GetAllEvents(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// CreateEvent godoc
// @Summary Create an event and its seats
// @Tags admin
// @Accept json
// @Produce json
// @Param body body CreateEventRequest true "Event"
// @Success 201 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /admin/events [post]
func (ctrl *controller) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	event, err := ctrl.service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.RespondJSON(c, "error", statusFor(err), err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Event created successfully", event, nil)
}

// GetEvent godoc
// @Summary Event details
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /events/{id} [get]
func (ctrl *controller) GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	event, err := ctrl.service.GetEventByID(c.Request.Context(), eventID)
	if err != nil {
		response.RespondJSON(c, "error", statusFor(err), err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event retrieved successfully", event, nil)
}

// UpdateEvent godoc
// @Summary Update event name, description or date
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param body body UpdateEventRequest true "Fields to change"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /admin/events/{id} [put]
func (ctrl *controller) UpdateEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	event, err := ctrl.service.UpdateEvent(c.Request.Context(), eventID, req)
	if err != nil {
		response.RespondJSON(c, "error", statusFor(err), err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event updated successfully", event, nil)
}

// GetAllEvents godoc
// @Summary Browse events
// @Tags events
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param search query string false "Name or description filter"
// @Success 200 {object} response.StandardApiResponse
// @Router /events [get]
func (ctrl *controller) GetAllEvents(c *gin.Context) {
	var query EventListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := ctrl.service.GetAllEvents(c.Request.Context(), query)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to retrieve events", nil, err.Error())
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Events retrieved successfully", result, nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidEventName), errors.Is(err, seats.ErrCapacityOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
