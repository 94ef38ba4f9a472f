package sales

import "seatflow/internal/seats"

// LockSeatsRequest locks the given seats, or the current selection when empty
type LockSeatsRequest struct {
	Seats []seats.Position `json:"seats" binding:"omitempty,dive"`
}

type CloseSaleRequest struct {
	Note string `json:"note" binding:"required,max=500"`
}
