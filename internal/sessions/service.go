package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"seatflow/internal/events"
	"seatflow/internal/seats"
	"seatflow/internal/shared/apperrors"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultTTL      = 30 * time.Minute
	DefaultMaxSeats = 4
)

// EventLookup resolves a local event; implemented by events.Service
type EventLookup interface {
	GetEventByID(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

// Manager owns the purchase session state machine:
// empty -> seats selected -> attendees assigned -> locked.
// Changing the selection always drops back to seats selected.
type Manager interface {
	Start(ctx context.Context, userID, eventID uuid.UUID) (*PurchaseSession, error)
	// Current returns nil when the user has no live session
	Current(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error)
	SetSeats(ctx context.Context, userID uuid.UUID, selection []seats.Position) (*PurchaseSession, error)
	SetAttendees(ctx context.Context, userID uuid.UUID, attendees []Attendee) (*PurchaseSession, error)
	MarkSeatsLocked(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error)
	Renew(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error)
	Clear(ctx context.Context, userID uuid.UUID) error

	ValidateSelection(event *events.Event, selection []seats.Position) error
	SelectedSeats(ctx context.Context, userID, eventID uuid.UUID) []seats.Position
	Now() time.Time
}

type Option func(*manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithMaxSeats(n int) Option {
	return func(m *manager) {
		if n > 0 {
			m.maxSeats = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *manager) { m.now = now }
}

type manager struct {
	store    Store
	events   EventLookup
	ttl      time.Duration
	maxSeats int
	now      func() time.Time
	log      *logger.Logger
}

func NewManager(store Store, eventLookup EventLookup, opts ...Option) Manager {
	m := &manager{
		store:    store,
		events:   eventLookup,
		ttl:      DefaultTTL,
		maxSeats: DefaultMaxSeats,
		now:      time.Now,
		log:      logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) Now() time.Time {
	return m.now()
}

func (m *manager) Start(ctx context.Context, userID, eventID uuid.UUID) (*PurchaseSession, error) {
	event, err := m.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive() {
		return nil, apperrors.InvalidState("event %s is not active", eventID)
	}

	now := m.now()
	existing, err := m.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.EventID == eventID {
		existing.ExpiresAt = now.Add(m.ttl)
		existing.UpdatedAt = now
		if err := m.save(ctx, existing); err != nil {
			return nil, err
		}
		m.log.LogSessionStarted(ctx, existing.ID.String(), eventID.String(), userID.String(), true)
		return existing, nil
	}

	if existing != nil {
		if err := m.store.Delete(ctx, userID); err != nil {
			return nil, err
		}
	}

	session := &PurchaseSession{
		ID:              uuid.New(),
		UserID:          userID,
		EventID:         event.ID,
		ExternalEventID: event.ExternalID,
		EventTitle:      event.Title,
		UnitPrice:       event.Price,
		Seats:           []seats.Position{},
		Attendees:       []Attendee{},
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
	}
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}

	m.log.LogSessionStarted(ctx, session.ID.String(), eventID.String(), userID.String(), false)
	return session, nil
}

func (m *manager) Current(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error) {
	session, err := m.store.Get(ctx, userID)
	if err != nil || session == nil {
		return nil, err
	}

	if session.Expired(m.now()) {
		if err := m.store.Delete(ctx, userID); err != nil {
			m.log.WarnContext(ctx, "failed to remove expired session",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
		}
		return nil, nil
	}
	return session, nil
}

func (m *manager) SetSeats(ctx context.Context, userID uuid.UUID, selection []seats.Position) (*PurchaseSession, error) {
	session, err := m.requireSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	event, err := m.events.GetEventByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	// An empty selection deselects everything
	if len(selection) > 0 {
		if err := m.ValidateSelection(event, selection); err != nil {
			return nil, err
		}
	}

	session.Seats = append([]seats.Position{}, selection...)
	session.Attendees = []Attendee{}
	session.SeatsLocked = false
	session.UpdatedAt = m.now()

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *manager) SetAttendees(ctx context.Context, userID uuid.UUID, attendees []Attendee) (*PurchaseSession, error) {
	session, err := m.requireSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(session.Seats) == 0 {
		return nil, apperrors.BadRequest("select seats before assigning attendees")
	}
	if len(attendees) != len(session.Seats) {
		return nil, apperrors.BadRequest("expected %d attendees, got %d", len(session.Seats), len(attendees))
	}

	assigned := make(map[seats.Position]bool, len(attendees))
	cleaned := make([]Attendee, 0, len(attendees))
	for _, a := range attendees {
		pos := a.Position()
		if !session.HasSeat(pos) {
			return nil, apperrors.BadRequest("seat %s is not part of the selection", pos)
		}
		if assigned[pos] {
			return nil, apperrors.BadRequest("seat %s has more than one attendee", pos)
		}
		a.Name = strings.TrimSpace(a.Name)
		a.Document = strings.TrimSpace(a.Document)
		if a.Name == "" {
			return nil, apperrors.BadRequest("attendee for seat %s needs a name", pos)
		}
		assigned[pos] = true
		cleaned = append(cleaned, a)
	}

	session.Attendees = cleaned
	session.UpdatedAt = m.now()

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *manager) MarkSeatsLocked(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error) {
	session, err := m.requireSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(session.Seats) == 0 {
		return nil, apperrors.BadRequest("no seats selected")
	}

	session.SeatsLocked = true
	session.UpdatedAt = m.now()

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *manager) Renew(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error) {
	session, err := m.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("no active purchase session")
	}

	now := m.now()
	session.ExpiresAt = now.Add(m.ttl)
	session.UpdatedAt = now

	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *manager) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.store.Delete(ctx, userID)
}

// ValidateSelection checks size, duplicates and grid bounds
func (m *manager) ValidateSelection(event *events.Event, selection []seats.Position) error {
	if len(selection) == 0 {
		return apperrors.BadRequest("at least one seat is required")
	}
	if len(selection) > m.maxSeats {
		return apperrors.BadRequest("at most %d seats can be selected, got %d", m.maxSeats, len(selection))
	}

	seen := make(map[seats.Position]bool, len(selection))
	for _, pos := range selection {
		if seen[pos] {
			return apperrors.BadRequest("seat %s is selected more than once", pos)
		}
		seen[pos] = true
		if !event.ContainsSeat(pos.Row, pos.Column) {
			return apperrors.BadRequest("seat %s is outside the %dx%d grid", pos, event.Rows, event.Columns)
		}
	}
	return nil
}

// SelectedSeats returns the live selection for an event, or nothing
func (m *manager) SelectedSeats(ctx context.Context, userID, eventID uuid.UUID) []seats.Position {
	session, err := m.Current(ctx, userID)
	if err != nil || session == nil || session.EventID != eventID {
		return nil
	}
	return session.Seats
}

func (m *manager) requireSession(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error) {
	session, err := m.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.InvalidState("no active purchase session")
	}
	return session, nil
}

func (m *manager) save(ctx context.Context, session *PurchaseSession) error {
	ttl := session.ExpiresAt.Sub(m.now())
	if err := m.store.Save(ctx, session, ttl); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
