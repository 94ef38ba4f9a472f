package sessions

import (
	"time"

	"seatflow/internal/seats"
)

type SessionResponse struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	ExternalEventID  int64            `json:"external_event_id"`
	EventTitle       string           `json:"event_title"`
	UnitPrice        float64          `json:"unit_price"`
	Total            float64          `json:"total"`
	Seats            []seats.Position `json:"seats"`
	Attendees        []Attendee       `json:"attendees"`
	SeatsLocked      bool             `json:"seats_locked"`
	Stage            Stage            `json:"stage"`
	ExpiresAt        time.Time        `json:"expires_at"`
	SecondsRemaining int              `json:"seconds_remaining"`
}

func ToResponse(s *PurchaseSession, now time.Time) SessionResponse {
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	selected := s.Seats
	if selected == nil {
		selected = []seats.Position{}
	}
	attendees := s.Attendees
	if attendees == nil {
		attendees = []Attendee{}
	}
	return SessionResponse{
		ID:               s.ID.String(),
		EventID:          s.EventID.String(),
		ExternalEventID:  s.ExternalEventID,
		EventTitle:       s.EventTitle,
		UnitPrice:        s.UnitPrice,
		Total:            s.Total(),
		Seats:            selected,
		Attendees:        attendees,
		SeatsLocked:      s.SeatsLocked,
		Stage:            s.Stage(),
		ExpiresAt:        s.ExpiresAt,
		SecondsRemaining: remaining,
	}
}
