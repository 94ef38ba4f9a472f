package seats

import (
	"context"
	"log/slog"

	"seatflow/internal/events"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
)

// EventLookup resolves a local event; implemented by events.Service
type EventLookup interface {
	GetEventByID(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

// SelectionLookup returns the seats a user currently has selected for an event.
// Implemented by the purchase session manager.
type SelectionLookup interface {
	SelectedSeats(ctx context.Context, userID, eventID uuid.UUID) []Position
}

type Service interface {
	SetSelectionLookup(lookup SelectionLookup)
	GetSeatMap(ctx context.Context, eventID uuid.UUID, userID *uuid.UUID) (*SeatMapResponse, error)
	GetSeatSummary(ctx context.Context, eventID uuid.UUID) (*SeatSummaryResponse, error)
	GatewayHealth(ctx context.Context) error
}

type service struct {
	events    EventLookup
	gateway   Gateway
	selection SelectionLookup
	log       *logger.Logger
}

func NewService(eventLookup EventLookup, gateway Gateway) Service {
	return &service{
		events:  eventLookup,
		gateway: gateway,
		log:     logger.GetDefault(),
	}
}

func (s *service) SetSelectionLookup(lookup SelectionLookup) {
	s.selection = lookup
}

// GetSeatMap renders the full grid. Seats the inventory does not report are free.
// When the gateway is unreachable every seat is rendered free and the map is flagged degraded.
func (s *service) GetSeatMap(ctx context.Context, eventID uuid.UUID, userID *uuid.UUID) (*SeatMapResponse, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	degraded := false
	states, err := s.gateway.QueryAll(ctx, event.ExternalID)
	if err != nil {
		s.log.WarnContext(ctx, "seat map degraded",
			slog.Int64("external_event_id", event.ExternalID),
			slog.String("error", err.Error()))
		states = map[Position]SeatState{}
		degraded = true
	}

	selected := map[Position]bool{}
	if userID != nil && s.selection != nil {
		for _, pos := range s.selection.SelectedSeats(ctx, *userID, eventID) {
			selected[pos] = true
		}
	}

	cells := make([]SeatCell, 0, event.Rows*event.Columns)
	summary := map[SeatState]int{StateFree: 0, StateLocked: 0, StateSold: 0}
	for row := 1; row <= event.Rows; row++ {
		for column := 1; column <= event.Columns; column++ {
			pos := Position{Row: row, Column: column}
			state, ok := states[pos]
			if !ok {
				state = StateFree
			}
			summary[state]++
			cells = append(cells, SeatCell{
				Row:      row,
				Column:   column,
				State:    state,
				Selected: selected[pos],
			})
		}
	}

	return &SeatMapResponse{
		EventID:         event.ID,
		ExternalEventID: event.ExternalID,
		Rows:            event.Rows,
		Columns:         event.Columns,
		Seats:           cells,
		Summary:         summary,
		Degraded:        degraded,
	}, nil
}

func (s *service) GetSeatSummary(ctx context.Context, eventID uuid.UUID) (*SeatSummaryResponse, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	total := event.Rows * event.Columns
	result := &SeatSummaryResponse{
		EventID:         event.ID,
		ExternalEventID: event.ExternalID,
		TotalSeats:      total,
	}

	counts, err := s.gateway.Summary(ctx, event.ExternalID)
	if err != nil {
		s.log.WarnContext(ctx, "seat summary degraded",
			slog.Int64("external_event_id", event.ExternalID),
			slog.String("error", err.Error()))
		result.Counts = map[SeatState]int{StateFree: total, StateLocked: 0, StateSold: 0}
		result.Degraded = true
		return result, nil
	}

	// The inventory only tracks touched seats; everything else on the grid is free
	free := total - counts[StateLocked] - counts[StateSold]
	if free < 0 {
		free = 0
	}
	result.Counts = map[SeatState]int{
		StateFree:   free,
		StateLocked: counts[StateLocked],
		StateSold:   counts[StateSold],
	}
	return result, nil
}

func (s *service) GatewayHealth(ctx context.Context) error {
	return s.gateway.Health(ctx)
}
