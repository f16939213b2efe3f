package reservations

type ReserveRequest struct {
	SeatNumber string `json:"seat_number" binding:"required,max=8" example:"A1"`
}

type LogQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
