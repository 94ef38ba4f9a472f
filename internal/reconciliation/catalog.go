package reconciliation

import (
	"context"
	"log/slog"
	"time"

	"seatflow/internal/events"
	"seatflow/internal/inventory"
	"seatflow/internal/shared/apperrors"
	"seatflow/pkg/logger"
)

const (
	DefaultGridRows    = 10
	DefaultGridColumns = 16
)

// EventCatalog is the part of events.Service the reconciler writes through
type EventCatalog interface {
	GetEventByExternalID(ctx context.Context, externalID int64) (*events.Event, error)
	ListActive(ctx context.Context) ([]events.Event, error)
	Upsert(ctx context.Context, event *events.Event) (bool, error)
	Deactivate(ctx context.Context, event *events.Event) error
	InvalidateListings(ctx context.Context) error
}

// SyncReport summarizes one full catalog sync
type SyncReport struct {
	Created     int           `json:"created"`
	Updated     int           `json:"updated"`
	Deactivated int           `json:"deactivated"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// SyncOutcome is what a single event sync did locally
type SyncOutcome string

const (
	SyncCreated     SyncOutcome = "created"
	SyncUpdated     SyncOutcome = "updated"
	SyncDeactivated SyncOutcome = "deactivated"
	SyncUnchanged   SyncOutcome = "unchanged"
)

// CatalogSyncer mirrors the external catalog into the local event store.
// The inventory is authoritative: local fields are overwritten, never merged.
type CatalogSyncer struct {
	inventory inventory.Client
	events    EventCatalog
	log       *logger.Logger
	now       func() time.Time
}

func NewCatalogSyncer(inventoryClient inventory.Client, catalog EventCatalog) *CatalogSyncer {
	return &CatalogSyncer{
		inventory: inventoryClient,
		events:    catalog,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

// SyncAll upserts every external event and deactivates local events the catalog no longer lists.
// A failure on one event is counted and logged; only a failed or empty catalog fetch aborts the run.
func (s *CatalogSyncer) SyncAll(ctx context.Context) (*SyncReport, error) {
	start := s.now()
	report := &SyncReport{}

	catalog, err := s.inventory.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	// An empty answer is treated as a broken upstream, never as "every event is gone"
	if len(catalog) == 0 {
		return nil, apperrors.Unavailable(nil, "inventory returned an empty catalog")
	}

	seen := make(map[int64]bool, len(catalog))
	for _, item := range catalog {
		if item.ID <= 0 {
			report.Failed++
			s.log.WarnContext(ctx, "catalog entry without id skipped", slog.String("title", item.Title))
			continue
		}
		seen[item.ID] = true

		created, err := s.events.Upsert(ctx, eventFromCatalog(item))
		if err != nil {
			report.Failed++
			s.log.ErrorContext(ctx, "catalog upsert failed",
				slog.Int64("external_event_id", item.ID),
				slog.String("error", err.Error()))
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	active, err := s.events.ListActive(ctx)
	if err != nil {
		report.Failed++
		s.log.ErrorContext(ctx, "listing active events failed", slog.String("error", err.Error()))
	}
	for i := range active {
		event := &active[i]
		if seen[event.ExternalID] {
			continue
		}
		if err := s.events.Deactivate(ctx, event); err != nil {
			report.Failed++
			s.log.ErrorContext(ctx, "event deactivation failed",
				slog.Int64("external_event_id", event.ExternalID),
				slog.String("error", err.Error()))
			continue
		}
		report.Deactivated++
	}

	report.Duration = s.now().Sub(start)
	s.log.LogCatalogSynced(ctx, report.Created, report.Updated, report.Deactivated, report.Failed, report.Duration)
	return report, nil
}

// SyncEvent refreshes one event: absent upstream means deactivate, present means upsert
func (s *CatalogSyncer) SyncEvent(ctx context.Context, externalID int64) (SyncOutcome, error) {
	if externalID <= 0 {
		return "", apperrors.BadRequest("invalid external event id")
	}

	item, err := s.inventory.GetEvent(ctx, externalID)
	if err != nil {
		return "", err
	}

	if item == nil {
		local, err := s.events.GetEventByExternalID(ctx, externalID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return SyncUnchanged, nil
			}
			return "", err
		}
		if !local.IsActive() {
			return SyncUnchanged, nil
		}
		if err := s.events.Deactivate(ctx, local); err != nil {
			return "", err
		}
		return SyncDeactivated, nil
	}

	if item.ID == 0 {
		item.ID = externalID
	}
	created, err := s.events.Upsert(ctx, eventFromCatalog(*item))
	if err != nil {
		return "", err
	}
	if created {
		return SyncCreated, nil
	}
	return SyncUpdated, nil
}

func eventFromCatalog(item inventory.CatalogEvent) *events.Event {
	event := &events.Event{
		ExternalID:  item.ID,
		Title:       item.Title,
		Summary:     item.Summary,
		Description: item.Description,
		Address:     item.Address,
		ImageURL:    item.Image,
		Rows:        DefaultGridRows,
		Columns:     DefaultGridColumns,
		Price:       item.Price,
		Status:      events.StatusActive,
	}
	if date, ok := item.ParsedDate(); ok {
		event.Date = date
	}
	if item.Rows != nil && *item.Rows > 0 {
		event.Rows = *item.Rows
	}
	if item.Columns != nil && *item.Columns > 0 {
		event.Columns = *item.Columns
	}
	if event.Price < 0 {
		event.Price = 0
	}
	return event
}
