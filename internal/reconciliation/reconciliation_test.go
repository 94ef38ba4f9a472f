package reconciliation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"seatflow/internal/events"
	"seatflow/internal/inventory"
	"seatflow/internal/notifications"
	"seatflow/internal/sales"
	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) LockSeats(ctx context.Context, externalEventID int64, seats []inventory.Seat) (*inventory.LockResult, error) {
	args := m.Called(ctx, externalEventID, seats)
	res, _ := args.Get(0).(*inventory.LockResult)
	return res, args.Error(1)
}

func (m *mockInventory) ConfirmSale(ctx context.Context, req inventory.SaleRequest) (*inventory.SaleResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*inventory.SaleResult)
	return res, args.Error(1)
}

func (m *mockInventory) ListCatalog(ctx context.Context) ([]inventory.CatalogEvent, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]inventory.CatalogEvent)
	return res, args.Error(1)
}

func (m *mockInventory) GetEvent(ctx context.Context, externalEventID int64) (*inventory.CatalogEvent, error) {
	args := m.Called(ctx, externalEventID)
	res, _ := args.Get(0).(*inventory.CatalogEvent)
	return res, args.Error(1)
}

func (m *mockInventory) ListSales(ctx context.Context) ([]inventory.SaleSummary, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]inventory.SaleSummary)
	return res, args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) ListPending(ctx context.Context, maxAttempts, limit int) ([]sales.Sale, error) {
	args := m.Called(ctx, maxAttempts, limit)
	res, _ := args.Get(0).([]sales.Sale)
	return res, args.Error(1)
}

func (m *mockLedger) RetrySale(ctx context.Context, saleID uuid.UUID, maxAttempts int) (sales.RetryResult, error) {
	args := m.Called(ctx, saleID, maxAttempts)
	return args.Get(0).(sales.RetryResult), args.Error(1)
}

func (m *mockLedger) ConfirmFromExternal(ctx context.Context, sale *sales.Sale, confirmationID int64) (bool, error) {
	args := m.Called(ctx, sale, confirmationID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error) {
	args := m.Called(ctx, ids)
	res, _ := args.Get(0).(map[int64]bool)
	return res, args.Error(1)
}

// memCatalog is an in-memory event store keyed by external id
type memCatalog struct {
	byExternal    map[int64]*events.Event
	upsertErr     map[int64]error
	invalidations int
}

func newMemCatalog(existing ...events.Event) *memCatalog {
	c := &memCatalog{byExternal: map[int64]*events.Event{}, upsertErr: map[int64]error{}}
	for i := range existing {
		e := existing[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Status == "" {
			e.Status = events.StatusActive
		}
		c.byExternal[e.ExternalID] = &e
	}
	return c
}

func (c *memCatalog) GetEventByExternalID(_ context.Context, externalID int64) (*events.Event, error) {
	e, ok := c.byExternal[externalID]
	if !ok {
		return nil, apperrors.NotFound("event with external id %d not found", externalID)
	}
	cp := *e
	return &cp, nil
}

func (c *memCatalog) ListActive(context.Context) ([]events.Event, error) {
	var out []events.Event
	for _, e := range c.byExternal {
		if e.IsActive() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (c *memCatalog) Upsert(_ context.Context, event *events.Event) (bool, error) {
	if err := c.upsertErr[event.ExternalID]; err != nil {
		return false, err
	}
	existing, ok := c.byExternal[event.ExternalID]
	if ok {
		event.ID = existing.ID
	} else {
		event.ID = uuid.New()
	}
	cp := *event
	c.byExternal[event.ExternalID] = &cp
	return !ok, nil
}

func (c *memCatalog) Deactivate(_ context.Context, event *events.Event) error {
	stored, ok := c.byExternal[event.ExternalID]
	if !ok {
		return apperrors.NotFound("event %s not found", event.ID)
	}
	stored.Status = events.StatusInactive
	event.Status = events.StatusInactive
	return nil
}

func (c *memCatalog) InvalidateListings(context.Context) error {
	c.invalidations++
	return nil
}

func intPtr(v int) *int { return &v }

// Catalog sync

func TestSyncAllUpsertsAndDeactivatesMissing(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog(
		events.Event{ExternalID: 1, Title: "Old title", Rows: 4, Columns: 4},
		events.Event{ExternalID: 3, Title: "Gone", Rows: 4, Columns: 4},
	)
	inv.On("ListCatalog", mock.Anything).Return([]inventory.CatalogEvent{
		{ID: 1, Title: "Recital", Date: "2026-11-20T21:00:00", Price: 1500},
		{ID: 2, Title: "Teatro", Rows: intPtr(5), Columns: intPtr(8), Price: 900},
	}, nil)

	report, err := NewCatalogSyncer(inv, catalog).SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Deactivated)
	assert.Equal(t, 0, report.Failed)

	updated := catalog.byExternal[1]
	assert.Equal(t, "Recital", updated.Title)
	assert.Equal(t, DefaultGridRows, updated.Rows, "missing dimensions fall back to the default grid")
	assert.Equal(t, DefaultGridColumns, updated.Columns)
	assert.Equal(t, 2026, updated.Date.Year())

	assert.Equal(t, 5, catalog.byExternal[2].Rows)
	assert.Equal(t, 8, catalog.byExternal[2].Columns)
	assert.False(t, catalog.byExternal[3].IsActive())
}

func TestSyncAllKeepsGoingAfterAFailedUpsert(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog()
	catalog.upsertErr[1] = errors.New("db down")
	inv.On("ListCatalog", mock.Anything).Return([]inventory.CatalogEvent{
		{ID: 1, Title: "Broken"},
		{ID: 2, Title: "Fine"},
	}, nil)

	report, err := NewCatalogSyncer(inv, catalog).SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.Contains(t, catalog.byExternal, int64(2))
}

func TestSyncAllAbortsWhenCatalogIsUnreachable(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog(events.Event{ExternalID: 1, Rows: 1, Columns: 1})
	inv.On("ListCatalog", mock.Anything).Return(nil, apperrors.Unavailable(errors.New("timeout"), "inventory unreachable"))

	_, err := NewCatalogSyncer(inv, catalog).SyncAll(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.KindServiceUnavailable))
	assert.True(t, catalog.byExternal[1].IsActive(), "an unreachable catalog must not deactivate anything")
}

func TestSyncAllAbortsOnEmptyCatalog(t *testing.T) {
	for _, body := range []string{`[]`, `null`, ``} {
		t.Run("body "+strconv.Quote(body), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			catalog := newMemCatalog(
				events.Event{ExternalID: 1, Rows: 1, Columns: 1},
				events.Event{ExternalID: 2, Rows: 1, Columns: 1},
			)
			client := inventory.NewClient(config.InventoryConfig{BaseURL: srv.URL, Timeout: time.Second})

			report, err := NewCatalogSyncer(client, catalog).SyncAll(context.Background())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, catalog.byExternal[1].IsActive())
			assert.True(t, catalog.byExternal[2].IsActive())
		})
	}
}

func TestSyncEvent(t *testing.T) {
	t.Run("absent upstream deactivates", func(t *testing.T) {
		inv := &mockInventory{}
		catalog := newMemCatalog(events.Event{ExternalID: 7, Rows: 1, Columns: 1})
		inv.On("GetEvent", mock.Anything, int64(7)).Return(nil, nil)

		outcome, err := NewCatalogSyncer(inv, catalog).SyncEvent(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, SyncDeactivated, outcome)
		assert.False(t, catalog.byExternal[7].IsActive())
	})

	t.Run("absent everywhere is a no-op", func(t *testing.T) {
		inv := &mockInventory{}
		inv.On("GetEvent", mock.Anything, int64(8)).Return(nil, nil)

		outcome, err := NewCatalogSyncer(inv, newMemCatalog()).SyncEvent(context.Background(), 8)
		require.NoError(t, err)
		assert.Equal(t, SyncUnchanged, outcome)
	})

	t.Run("present upstream upserts", func(t *testing.T) {
		inv := &mockInventory{}
		catalog := newMemCatalog()
		inv.On("GetEvent", mock.Anything, int64(9)).Return(&inventory.CatalogEvent{ID: 9, Title: "Nuevo"}, nil)

		outcome, err := NewCatalogSyncer(inv, catalog).SyncEvent(context.Background(), 9)
		require.NoError(t, err)
		assert.Equal(t, SyncCreated, outcome)
		assert.Equal(t, "Nuevo", catalog.byExternal[9].Title)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := NewCatalogSyncer(&mockInventory{}, newMemCatalog()).SyncEvent(context.Background(), 0)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
	})
}

// Notification handling

func TestSeatNotificationsOnlyDropListings(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog(events.Event{ExternalID: 4, Rows: 2, Columns: 2})
	processor := notifications.NewProcessor(NewNotificationHandler(NewCatalogSyncer(inv, catalog), catalog))

	_, err := processor.Process(context.Background(), []byte(`{"tipo":"ASIENTO_VENDIDO","eventoId":4,"fila":1,"columna":1}`), notifications.SourceWebhook)
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.invalidations)
	assert.True(t, catalog.byExternal[4].IsActive())
	inv.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
}

func TestEventNotificationSyncsThatEvent(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog(events.Event{ExternalID: 4, Rows: 2, Columns: 2})
	inv.On("GetEvent", mock.Anything, int64(4)).Return(nil, nil).Once()
	processor := notifications.NewProcessor(NewNotificationHandler(NewCatalogSyncer(inv, catalog), catalog))

	_, err := processor.Process(context.Background(), []byte(`{"operacion":"DELETE","eventoId":4}`), notifications.SourceKafka)
	require.NoError(t, err)

	assert.False(t, catalog.byExternal[4].IsActive())
	inv.AssertExpectations(t)
}

func TestEventNotificationSurfacesInventoryFailure(t *testing.T) {
	inv := &mockInventory{}
	catalog := newMemCatalog()
	inv.On("GetEvent", mock.Anything, int64(5)).Return(nil, apperrors.Unavailable(errors.New("timeout"), "inventory unreachable"))
	processor := notifications.NewProcessor(NewNotificationHandler(NewCatalogSyncer(inv, catalog), catalog))

	_, err := processor.Process(context.Background(), []byte(`{"tipo":"EVENTO_ACTUALIZADO","eventoId":5}`), notifications.SourceKafka)
	require.Error(t, err)
	assert.False(t, notifications.IsPermanent(err))
}

// Sale sync

var saleRecordedAt = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// soldShortlyAfter is an external sale time just after saleRecordedAt
const soldShortlyAfter = "2026-10-18T12:00:04Z"

func pendingSale(externalEventID int64, total float64, seatCount int) sales.Sale {
	s := sales.Sale{
		ID:              uuid.New(),
		ExternalEventID: externalEventID,
		Total:           total,
		Outcome:         sales.OutcomePending,
		CreatedAt:       saleRecordedAt,
	}
	for i := 0; i < seatCount; i++ {
		s.Seats = append(s.Seats, sales.SaleSeat{Row: 1, Column: i + 1})
	}
	return s
}

func TestSaleSyncConfirmsMatchingExternalSale(t *testing.T) {
	inv := &mockInventory{}
	ledger := &mockLedger{}

	match := pendingSale(10, 300, 2)
	other := pendingSale(10, 300, 3)
	ledger.On("ListPending", mock.Anything, 0, 50).Return([]sales.Sale{match, other}, nil)
	inv.On("ListSales", mock.Anything).Return([]inventory.SaleSummary{
		{EventID: 10, SaleID: 501, Accepted: true, Price: 300, SeatCount: 2, SoldAt: soldShortlyAfter},
		{EventID: 10, SaleID: 502, Accepted: false, Price: 300, SeatCount: 3, SoldAt: soldShortlyAfter},
		{EventID: 10, SaleID: 503, Accepted: true, Price: 300, SeatCount: 3, SoldAt: soldShortlyAfter},
	}, nil)
	ledger.On("ConfirmationIDsInUse", mock.Anything, []int64{501, 503}).Return(map[int64]bool{503: true}, nil)
	ledger.On("ConfirmFromExternal", mock.Anything, mock.MatchedBy(func(s *sales.Sale) bool { return s.ID == match.ID }), int64(501)).Return(true, nil)

	report, err := NewSaleSyncer(inv, ledger, 50).Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Confirmed)
	assert.Equal(t, 2, report.Pending)
	ledger.AssertExpectations(t)
	ledger.AssertNumberOfCalls(t, "ConfirmFromExternal", 1)
}

func TestSaleSyncUsesEachExternalSaleOnce(t *testing.T) {
	inv := &mockInventory{}
	ledger := &mockLedger{}

	first := pendingSale(10, 100, 1)
	second := pendingSale(10, 100, 1)
	ledger.On("ListPending", mock.Anything, 0, 50).Return([]sales.Sale{first, second}, nil)
	inv.On("ListSales", mock.Anything).Return([]inventory.SaleSummary{
		{EventID: 10, SaleID: 700, Accepted: true, Price: 100, SeatCount: 1, SoldAt: soldShortlyAfter},
	}, nil)
	ledger.On("ConfirmationIDsInUse", mock.Anything, []int64{700}).Return(map[int64]bool{}, nil)
	ledger.On("ConfirmFromExternal", mock.Anything, mock.Anything, int64(700)).Return(true, nil).Once()

	report, err := NewSaleSyncer(inv, ledger, 50).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Confirmed)
	ledger.AssertNumberOfCalls(t, "ConfirmFromExternal", 1)
}

func TestSaleSyncIgnoresExternalSalesOlderThanTheLocalSale(t *testing.T) {
	inv := &mockInventory{}
	ledger := &mockLedger{}

	sale := pendingSale(7, 200, 2)
	ledger.On("ListPending", mock.Anything, 0, 50).Return([]sales.Sale{sale}, nil)
	inv.On("ListSales", mock.Anything).Return([]inventory.SaleSummary{
		{EventID: 7, SaleID: 999, Accepted: true, Price: 200, SeatCount: 2, SoldAt: "2026-09-18T10:00:00Z"},
		{EventID: 7, SaleID: 1000, Accepted: true, Price: 200, SeatCount: 2, SoldAt: "yesterday"},
		{EventID: 7, SaleID: 1001, Accepted: true, Price: 200, SeatCount: 2},
	}, nil)
	ledger.On("ConfirmationIDsInUse", mock.Anything, []int64{999, 1000, 1001}).Return(map[int64]bool{}, nil)

	report, err := NewSaleSyncer(inv, ledger, 50).Sync(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Confirmed)
	ledger.AssertNotCalled(t, "ConfirmFromExternal", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaleSyncToleratesSmallClockSkew(t *testing.T) {
	inv := &mockInventory{}
	ledger := &mockLedger{}

	sale := pendingSale(7, 200, 2)
	ledger.On("ListPending", mock.Anything, 0, 50).Return([]sales.Sale{sale}, nil)
	inv.On("ListSales", mock.Anything).Return([]inventory.SaleSummary{
		{EventID: 7, SaleID: 1200, Accepted: true, Price: 200, SeatCount: 2, SoldAt: "2026-10-18T11:58:30Z"},
	}, nil)
	ledger.On("ConfirmationIDsInUse", mock.Anything, []int64{1200}).Return(map[int64]bool{}, nil)
	ledger.On("ConfirmFromExternal", mock.Anything, mock.Anything, int64(1200)).Return(true, nil)

	report, err := NewSaleSyncer(inv, ledger, 50).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Confirmed)
}

func TestSaleSyncSkipsListingWithoutPendingSales(t *testing.T) {
	inv := &mockInventory{}
	ledger := &mockLedger{}
	ledger.On("ListPending", mock.Anything, 0, 50).Return([]sales.Sale{}, nil)

	report, err := NewSaleSyncer(inv, ledger, 50).Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Confirmed)
	inv.AssertNotCalled(t, "ListSales", mock.Anything)
}

// Retry duty

func TestRetryPendingContinuesPastFailures(t *testing.T) {
	ledger := &mockLedger{}
	a, b, c := pendingSale(1, 10, 1), pendingSale(1, 10, 1), pendingSale(1, 10, 1)
	cfg := DefaultJobConfig()

	ledger.On("ListPending", mock.Anything, cfg.MaxAttempts, cfg.BatchSize).Return([]sales.Sale{a, b, c}, nil)
	ledger.On("RetrySale", mock.Anything, a.ID, cfg.MaxAttempts).Return(sales.RetrySkipped, errors.New("db down"))
	ledger.On("RetrySale", mock.Anything, b.ID, cfg.MaxAttempts).Return(sales.RetryConfirmed, nil)
	ledger.On("RetrySale", mock.Anything, c.ID, cfg.MaxAttempts).Return(sales.RetryExhausted, nil)

	jobs := NewJobProcessor(ledger, nil, nil, cfg)
	report, err := jobs.RetryPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Selected)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Confirmed)
	assert.Equal(t, 1, report.Exhausted)
	ledger.AssertExpectations(t)

	status := jobs.GetJobStatus()
	runs := status["last_runs"].(map[string]JobRun)
	assert.Contains(t, runs, JobRetryPending)
	assert.Empty(t, runs[JobRetryPending].Error)
}

func TestJobConfigFromConfigKeepsDefaults(t *testing.T) {
	cfg := JobConfigFromConfig(config.ReconciliationConfig{})
	assert.Equal(t, DefaultJobConfig(), cfg)
}

// Admin endpoints

func TestSyncEventEndpointRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ctrl := NewController(NewJobProcessor(&mockLedger{}, NewCatalogSyncer(&mockInventory{}, newMemCatalog()), nil, nil))
	router.POST("/admin/sync/events/:externalId", ctrl.SyncEvent)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/sync/events/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncCatalogEndpointMapsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	inv := &mockInventory{}
	inv.On("ListCatalog", mock.Anything).Return(nil, apperrors.Unavailable(errors.New("timeout"), "inventory unreachable"))

	router := gin.New()
	jobs := NewJobProcessor(&mockLedger{}, NewCatalogSyncer(inv, newMemCatalog()), nil, nil)
	router.POST("/admin/sync/catalog", NewController(jobs).SyncCatalog)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/sync/catalog", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	runs := jobs.GetJobStatus()["last_runs"].(map[string]JobRun)
	assert.NotEmpty(t, runs[JobCatalogSync].Error)
}
