package sessions

import "seatflow/internal/seats"

type StartSessionRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
}

type SetSeatsRequest struct {
	Seats []seats.Position `json:"seats" binding:"required,dive"`
}

type SetAttendeesRequest struct {
	Attendees []Attendee `json:"attendees" binding:"required,dive"`
}
