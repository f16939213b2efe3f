package reservations

import (
	"time"
)

type ReservationResponse struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name,omitempty"`
	UserID     string    `json:"user_id"`
	SeatNumber string    `json:"seat_number"`
	CreatedAt  time.Time `json:"created_at"`
}

type PromotionResponse struct {
	UserID     string `json:"user_id"`
	SeatNumber string `json:"seat_number"`
}

// ResultResponse is the payload of every mutating reservation endpoint
type ResultResponse struct {
	Kind        Kind                 `json:"kind"`
	Category    Category             `json:"category"`
	Reservation *ReservationResponse `json:"reservation,omitempty"`
	Promotion   *PromotionResponse   `json:"promotion,omitempty"`
	Position    int                  `json:"position,omitempty"`
}

func (r *Reservation) ToResponse() ReservationResponse {
	resp := ReservationResponse{
		ID:         r.ID.String(),
		EventID:    r.EventID.String(),
		UserID:     r.UserID.String(),
		SeatNumber: r.SeatNumber,
		CreatedAt:  r.CreatedAt,
	}
	if r.Event != nil {
		resp.EventName = r.Event.Name
	}
	return resp
}

func (r Result) ToResponse() ResultResponse {
	resp := ResultResponse{
		Kind:     r.Kind,
		Category: r.Kind.Category(),
		Position: r.Position,
	}
	if r.Reservation != nil {
		rr := r.Reservation.ToResponse()
		resp.Reservation = &rr
	}
	if r.Promotion != nil {
		resp.Promotion = &PromotionResponse{
			UserID:     r.Promotion.UserID.String(),
			SeatNumber: r.Promotion.SeatNumber,
		}
	}
	return resp
}

func toResponses(list []Reservation) []ReservationResponse {
	out := make([]ReservationResponse, len(list))
	for i := range list {
		out[i] = list[i].ToResponse()
	}
	return out
}
