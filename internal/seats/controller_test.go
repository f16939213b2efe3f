package seats

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubAvailability struct {
	grid *Grid
	err  error
}

func (s stubAvailability) GetSeatAvailability(ctx context.Context, eventID uuid.UUID) (*Grid, error) {
	return s.grid, s.err
}

func serveSeatMap(svc AvailabilityService, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	SetupSeatRoutes(engine.Group("/api/v1"), NewController(svc))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetSeatMapStatusCodes(t *testing.T) {
	eventID := uuid.New()
	path := "/api/v1/events/" + eventID.String() + "/seats"

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"found", nil, http.StatusOK},
		{"unknown event", fmt.Errorf("lookup: %w", ErrEventNotFound), http.StatusNotFound},
		{"event locked", fmt.Errorf("lookup: %w", ErrBusy), http.StatusServiceUnavailable},
		{"storage", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := stubAvailability{err: tc.err}
			if tc.err == nil {
				svc.grid = BuildGrid(eventID, nil)
			}
			w := serveSeatMap(svc, path)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}

	w := serveSeatMap(stubAvailability{}, "/api/v1/events/not-a-uuid/seats")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
