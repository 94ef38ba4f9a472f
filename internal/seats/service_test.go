package seats

import (
	"context"
	"testing"

	"seatflow/internal/events"
	"seatflow/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) QueryOne(ctx context.Context, externalEventID int64, row, column int) (SeatState, error) {
	args := m.Called(ctx, externalEventID, row, column)
	return args.Get(0).(SeatState), args.Error(1)
}

func (m *mockGateway) QueryAll(ctx context.Context, externalEventID int64) (map[Position]SeatState, error) {
	args := m.Called(ctx, externalEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[Position]SeatState), args.Error(1)
}

func (m *mockGateway) Summary(ctx context.Context, externalEventID int64) (map[SeatState]int, error) {
	args := m.Called(ctx, externalEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[SeatState]int), args.Error(1)
}

func (m *mockGateway) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubEvents map[uuid.UUID]*events.Event

func (s stubEvents) GetEventByID(_ context.Context, id uuid.UUID) (*events.Event, error) {
	if event, ok := s[id]; ok {
		return event, nil
	}
	return nil, apperrors.NotFound("event %s not found", id)
}

type stubSelection []Position

func (s stubSelection) SelectedSeats(context.Context, uuid.UUID, uuid.UUID) []Position {
	return s
}

func newEvent() *events.Event {
	return &events.Event{ID: uuid.New(), ExternalID: 11, Rows: 2, Columns: 3, Status: events.StatusActive}
}

func TestGetSeatMapMarksStatesAndSelection(t *testing.T) {
	event := newEvent()
	gw := new(mockGateway)
	svc := NewService(stubEvents{event.ID: event}, gw)
	svc.SetSelectionLookup(stubSelection{{Row: 2, Column: 3}})
	ctx := context.Background()

	gw.On("QueryAll", ctx, int64(11)).Return(map[Position]SeatState{
		{Row: 1, Column: 1}: StateSold,
		{Row: 2, Column: 3}: StateLocked,
	}, nil)

	userID := uuid.New()
	seatMap, err := svc.GetSeatMap(ctx, event.ID, &userID)
	require.NoError(t, err)

	require.Len(t, seatMap.Seats, 6)
	assert.False(t, seatMap.Degraded)
	assert.Equal(t, StateSold, seatMap.Seats[0].State)
	last := seatMap.Seats[5]
	assert.Equal(t, 2, last.Row)
	assert.Equal(t, 3, last.Column)
	assert.Equal(t, StateLocked, last.State)
	assert.True(t, last.Selected)
	assert.Equal(t, map[SeatState]int{StateFree: 4, StateLocked: 1, StateSold: 1}, seatMap.Summary)
}

func TestGetSeatMapDegradesWhenGatewayDown(t *testing.T) {
	event := newEvent()
	gw := new(mockGateway)
	svc := NewService(stubEvents{event.ID: event}, gw)
	ctx := context.Background()

	gw.On("QueryAll", ctx, int64(11)).Return(nil, apperrors.Unavailable(nil, "proxy down"))

	seatMap, err := svc.GetSeatMap(ctx, event.ID, nil)
	require.NoError(t, err)

	assert.True(t, seatMap.Degraded)
	for _, cell := range seatMap.Seats {
		assert.Equal(t, StateFree, cell.State)
		assert.False(t, cell.Selected)
	}
}

func TestGetSeatMapUnknownEvent(t *testing.T) {
	svc := NewService(stubEvents{}, new(mockGateway))

	_, err := svc.GetSeatMap(context.Background(), uuid.New(), nil)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestGetSeatSummaryDerivesFree(t *testing.T) {
	event := newEvent()
	gw := new(mockGateway)
	svc := NewService(stubEvents{event.ID: event}, gw)
	ctx := context.Background()

	gw.On("Summary", ctx, int64(11)).Return(map[SeatState]int{StateSold: 2, StateLocked: 1}, nil)

	summary, err := svc.GetSeatSummary(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.TotalSeats)
	assert.Equal(t, map[SeatState]int{StateFree: 3, StateLocked: 1, StateSold: 2}, summary.Counts)
}
