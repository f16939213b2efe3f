package reservations

import (
	"context"
	"net/http"

	"ticketly/internal/activity"
	"ticketly/internal/shared/middleware"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service is the engine surface the HTTP handlers need
type Service interface {
	Reserve(ctx context.Context, userID, eventID uuid.UUID, seatNumber string) Result
	Cancel(ctx context.Context, userID, eventID uuid.UUID) Result
	LeaveWaitlist(ctx context.Context, userID, eventID uuid.UUID) Result
	WaitlistPosition(ctx context.Context, userID, eventID uuid.UUID) Result
	GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error)
	ListUserReservations(ctx context.Context, userID uuid.UUID) ([]Reservation, error)
	ListUserLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error)
	ListEventReservations(ctx context.Context, eventID uuid.UUID) ([]Reservation, error)
}

type Controller interface {
	Reserve(c *gin.Context)
	Cancel(c *gin.Context)
	GetMyReservation(c *gin.Context)
	WaitlistPosition(c *gin.Context)
	LeaveWaitlist(c *gin.Context)
	ListMyReservations(c *gin.Context)
	ListMyLogs(c *gin.Context)
	ListEventReservations(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// HTTPStatus maps a result kind to its response status. created selects 201
// for successful operations that create a resource.
func HTTPStatus(kind Kind, created bool) int {
	switch kind {
	case KindSuccess:
		if created {
			return http.StatusCreated
		}
		return http.StatusOK
	case KindWaitlisted:
		return http.StatusAccepted
	case KindTimeout:
		return http.StatusServiceUnavailable
	}

	switch kind.Category() {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondResult(c *gin.Context, res Result, created bool) {
	code := HTTPStatus(res.Kind, created)
	status := "success"
	if code >= http.StatusBadRequest {
		status = "error"
	}
	response.RespondJSON(c, status, code, res.Message, res.ToResponse(), nil)
}

func respondError(c *gin.Context, err error) {
	response.RespondJSON(c, "error", HTTPStatus(KindOf(err), false), err.Error(), nil, nil)
}

// identify extracts the caller and the :id event; it writes the error
// response itself and reports false on failure
func identify(c *gin.Context) (userID, eventID uuid.UUID, ok bool) {
	userID, ok = middleware.CurrentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	return userID, eventID, true
}

// Reserve godoc
// @Summary Reserve a seat, or join the waitlist when sold out
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param body body ReserveRequest true "Seat"
// @Success 201 {object} response.StandardApiResponse
// @Success 202 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /events/{id}/reservations [post]
func (ctrl *controller) Reserve(c *gin.Context) {
	userID, eventID, ok := identify(c)
	if !ok {
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	respondResult(c, ctrl.service.Reserve(c.Request.Context(), userID, eventID, req.SeatNumber), true)
}

// Cancel godoc
// @Summary Cancel the caller's reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /events/{id}/reservations [delete]
func (ctrl *controller) Cancel(c *gin.Context) {
	userID, eventID, ok := identify(c)
	if !ok {
		return
	}
	respondResult(c, ctrl.service.Cancel(c.Request.Context(), userID, eventID), false)
}

// GetMyReservation godoc
// @Summary The caller's reservation for an event
// @Tags reservations
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /events/{id}/reservations/me [get]
func (ctrl *controller) GetMyReservation(c *gin.Context) {
	userID, eventID, ok := identify(c)
	if !ok {
		return
	}

	r, err := ctrl.service.GetReservation(c.Request.Context(), userID, eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Reservation retrieved successfully", r.ToResponse(), nil)
}

// WaitlistPosition godoc
// @Summary The caller's waitlist position for an event
// @Tags waitlist
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /events/{id}/waitlist/position [get]
func (ctrl *controller) WaitlistPosition(c *gin.Context) {
	userID, eventID, ok := identify(c)
	if !ok {
		return
	}
	respondResult(c, ctrl.service.WaitlistPosition(c.Request.Context(), userID, eventID), false)
}

// LeaveWaitlist godoc
// @Summary Leave an event's waitlist
// @Tags waitlist
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /events/{id}/waitlist [delete]
func (ctrl *controller) LeaveWaitlist(c *gin.Context) {
	userID, eventID, ok := identify(c)
	if !ok {
		return
	}
	respondResult(c, ctrl.service.LeaveWaitlist(c.Request.Context(), userID, eventID), false)
}

// ListMyReservations godoc
// @Summary The caller's reservations
// @Tags reservations
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /me/reservations [get]
func (ctrl *controller) ListMyReservations(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	list, err := ctrl.service.ListUserReservations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Reservations retrieved successfully", toResponses(list), nil)
}

// ListMyLogs godoc
// @Summary The caller's recent activity, newest first
// @Tags reservations
// @Produce json
// @Param limit query int false "Number of entries"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /me/logs [get]
func (ctrl *controller) ListMyLogs(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query LogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	logs, err := ctrl.service.ListUserLogs(c.Request.Context(), userID, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]activity.LogResponse, len(logs))
	for i := range logs {
		out[i] = logs[i].ToResponse()
	}
	response.RespondJSON(c, "success", http.StatusOK, "Activity retrieved successfully", out, nil)
}

// ListEventReservations godoc
// @Summary All reservations of an event
// @Tags admin
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /admin/events/{id}/reservations [get]
func (ctrl *controller) ListEventReservations(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	list, err := ctrl.service.ListEventReservations(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Event reservations retrieved successfully", toResponses(list), nil)
}
