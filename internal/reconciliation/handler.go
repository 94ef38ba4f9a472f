package reconciliation

import (
	"context"
	"log/slog"

	"seatflow/internal/notifications"
	"seatflow/pkg/logger"
)

// NotificationHandler reacts to change-feed notifications. Seat changes never touch
// local state; the seat source stays authoritative and only listing pages are dropped.
type NotificationHandler struct {
	syncer *CatalogSyncer
	events EventCatalog
	log    *logger.Logger
}

func NewNotificationHandler(syncer *CatalogSyncer, catalog EventCatalog) *NotificationHandler {
	return &NotificationHandler{
		syncer: syncer,
		events: catalog,
		log:    logger.GetDefault(),
	}
}

func (h *NotificationHandler) HandleNewEvent(ctx context.Context, n notifications.NewEvent) error {
	return h.syncEvent(ctx, n.EventID)
}

func (h *NotificationHandler) HandleEventUpdated(ctx context.Context, n notifications.EventUpdated) error {
	return h.syncEvent(ctx, n.EventID)
}

func (h *NotificationHandler) HandleEventCancelled(ctx context.Context, n notifications.EventCancelled) error {
	return h.syncEvent(ctx, n.EventID)
}

func (h *NotificationHandler) HandleSeatLocked(ctx context.Context, n notifications.SeatLocked) error {
	return h.dropListings(ctx, n.EventID)
}

func (h *NotificationHandler) HandleSeatSold(ctx context.Context, n notifications.SeatSold) error {
	return h.dropListings(ctx, n.EventID)
}

func (h *NotificationHandler) HandleSeatReleased(ctx context.Context, n notifications.SeatReleased) error {
	return h.dropListings(ctx, n.EventID)
}

func (h *NotificationHandler) syncEvent(ctx context.Context, externalID int64) error {
	outcome, err := h.syncer.SyncEvent(ctx, externalID)
	if err != nil {
		return err
	}
	h.log.DebugContext(ctx, "event synced from notification",
		slog.Int64("external_event_id", externalID),
		slog.String("outcome", string(outcome)))

	// Upsert already dropped listings when something changed
	if outcome == SyncUnchanged {
		return h.dropListings(ctx, externalID)
	}
	return nil
}

// Cache failures are logged, not returned: a redelivery would not fix them
func (h *NotificationHandler) dropListings(ctx context.Context, externalID int64) error {
	if err := h.events.InvalidateListings(ctx); err != nil {
		h.log.WarnContext(ctx, "listing invalidation failed",
			slog.Int64("external_event_id", externalID),
			slog.String("error", err.Error()))
	}
	return nil
}
