package sessions

import (
	"time"

	"seatflow/internal/seats"

	"github.com/google/uuid"
)

// Stage is the position of a session in the purchase flow
type Stage string

const (
	StageEmpty             Stage = "empty"
	StageSeatsSelected     Stage = "seats_selected"
	StageAttendeesAssigned Stage = "attendees_assigned"
	StageLocked            Stage = "locked"
)

// Attendee is the person who will occupy one selected seat
type Attendee struct {
	Row      int    `json:"row" binding:"required,min=1"`
	Column   int    `json:"column" binding:"required,min=1"`
	Name     string `json:"name" binding:"required,max=120"`
	Document string `json:"document" binding:"max=40"`
}

func (a Attendee) Position() seats.Position {
	return seats.Position{Row: a.Row, Column: a.Column}
}

// PurchaseSession is a user's in-progress purchase. It lives only in the session store.
type PurchaseSession struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	EventID         uuid.UUID        `json:"event_id"`
	ExternalEventID int64            `json:"external_event_id"`
	EventTitle      string           `json:"event_title"`
	UnitPrice       float64          `json:"unit_price"`
	Seats           []seats.Position `json:"seats"`
	Attendees       []Attendee       `json:"attendees"`
	SeatsLocked     bool             `json:"seats_locked"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

func (s *PurchaseSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *PurchaseSession) Stage() Stage {
	switch {
	case len(s.Seats) == 0:
		return StageEmpty
	case s.SeatsLocked:
		return StageLocked
	case len(s.Attendees) > 0:
		return StageAttendeesAssigned
	default:
		return StageSeatsSelected
	}
}

func (s *PurchaseSession) HasSeat(pos seats.Position) bool {
	for _, seat := range s.Seats {
		if seat == pos {
			return true
		}
	}
	return false
}

// AttendeesComplete reports whether every selected seat has exactly one attendee
func (s *PurchaseSession) AttendeesComplete() bool {
	return len(s.Seats) > 0 && len(s.Attendees) == len(s.Seats)
}

// AttendeeFor returns the attendee assigned to a seat
func (s *PurchaseSession) AttendeeFor(pos seats.Position) (Attendee, bool) {
	for _, a := range s.Attendees {
		if a.Position() == pos {
			return a, true
		}
	}
	return Attendee{}, false
}

func (s *PurchaseSession) Total() float64 {
	return s.UnitPrice * float64(len(s.Seats))
}
