package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"seatflow/internal/inventory"
	"seatflow/internal/seats"
	"seatflow/internal/sessions"
	"seatflow/internal/shared/apperrors"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
)

// RetryResult tells the reconciler what a retry did to a pending sale
type RetryResult string

const (
	RetryConfirmed    RetryResult = "confirmed"
	RetryStillPending RetryResult = "pending"
	RetryExhausted    RetryResult = "exhausted"
	RetrySkipped      RetryResult = "skipped"
)

// Service coordinates checkout against the external inventory and owns the sale ledger
type Service interface {
	LockSeats(ctx context.Context, userID uuid.UUID, selection []seats.Position) (*LockSeatsResponse, error)
	Checkout(ctx context.Context, userID uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context, userID uuid.UUID, query SaleListQuery) (*PaginatedSales, error)
	GetSale(ctx context.Context, userID, saleID uuid.UUID) (*Sale, error)

	// Admin operations
	ListAllSales(ctx context.Context, query SaleListQuery) (*PaginatedSales, error)
	CloseSale(ctx context.Context, saleID uuid.UUID, note string) (*Sale, error)

	// Reconciliation entry points
	ListPending(ctx context.Context, maxAttempts, limit int) ([]Sale, error)
	RetrySale(ctx context.Context, saleID uuid.UUID, maxAttempts int) (RetryResult, error)
	ConfirmFromExternal(ctx context.Context, sale *Sale, confirmationID int64) (bool, error)
	ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *service) { s.log = log }
}

type service struct {
	repo      Repository
	sessions  sessions.Manager
	events    sessions.EventLookup
	gateway   seats.Gateway
	inventory inventory.Client
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	sessionManager sessions.Manager,
	eventLookup sessions.EventLookup,
	gateway seats.Gateway,
	inventoryClient inventory.Client,
	publisher Publisher,
	opts ...Option,
) Service {
	if publisher == nil {
		publisher = NopPublisher()
	}
	s := &service{
		repo:      repo,
		sessions:  sessionManager,
		events:    eventLookup,
		gateway:   gateway,
		inventory: inventoryClient,
		publisher: publisher,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockSeats asks the inventory to hold the seats and records the lock in the session.
// An empty selection locks the seats already selected.
func (s *service) LockSeats(ctx context.Context, userID uuid.UUID, selection []seats.Position) (*LockSeatsResponse, error) {
	session, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.InvalidState("no active purchase session")
	}

	event, err := s.events.GetEventByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive() {
		return nil, apperrors.InvalidState("event %s is not active", event.ID)
	}

	if len(selection) == 0 {
		selection = session.Seats
	}
	if err := s.sessions.ValidateSelection(event, selection); err != nil {
		return nil, err
	}

	result, err := s.inventory.LockSeats(ctx, event.ExternalID, toInventorySeats(selection, nil))
	if err != nil {
		return nil, err
	}

	statuses := make([]SeatLockStatus, 0, len(result.Seats))
	for _, seat := range result.Seats {
		statuses = append(statuses, SeatLockStatus{Row: seat.Row, Column: seat.Column, Status: seat.Status})
	}

	if !result.Accepted {
		reason := result.Reason
		if reason == "" {
			reason = "rejected by inventory"
		}
		return nil, apperrors.Conflict("seats could not be locked: %s", reason).WithDetails(statuses)
	}

	// Re-selecting the same seats would drop the attendees already assigned
	if !samePositions(session.Seats, selection) {
		if _, err := s.sessions.SetSeats(ctx, userID, selection); err != nil {
			return nil, err
		}
	}
	session, err = s.sessions.MarkSeatsLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.log.LogSeatsLocked(ctx, userID.String(), event.ExternalID, len(selection))
	return &LockSeatsResponse{
		Session: sessions.ToResponse(session, s.sessions.Now()),
		Seats:   statuses,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*Sale, error) {
	// 1. The session must be locked with an attendee per seat
	session, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.BadRequest("no active purchase session")
	}
	if !session.AttendeesComplete() {
		return nil, apperrors.BadRequest("every selected seat needs an attendee before checkout")
	}
	if !session.SeatsLocked {
		return nil, apperrors.BadRequest("seats must be locked before checkout")
	}

	// 2. The event must still be on sale
	event, err := s.events.GetEventByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive() {
		return nil, apperrors.InvalidState("event %s is not active", event.ID)
	}

	// 3. Best-effort re-verification; only a definite answer can block checkout
	for _, pos := range session.Seats {
		state, err := s.gateway.QueryOne(ctx, event.ExternalID, pos.Row, pos.Column)
		if err != nil {
			s.log.WarnContext(ctx, "seat verification skipped",
				slog.String("seat", pos.String()),
				slog.Int64("external_event_id", event.ExternalID),
				slog.String("error", err.Error()))
			continue
		}
		if state != seats.StateLocked {
			return nil, apperrors.Conflict("seat %s is %s", pos, state).
				WithDetails(map[string]interface{}{"row": pos.Row, "column": pos.Column, "state": state})
		}
	}

	// 4. Persist before talking to the inventory
	now := s.now()
	sale := &Sale{
		UserID:          userID,
		EventID:         event.ID,
		ExternalEventID: event.ExternalID,
		EventTitle:      event.Title,
		UnitPrice:       session.UnitPrice,
		Total:           roundPrice(session.Total()),
		Outcome:         OutcomePending,
		Note:            "awaiting confirmation",
		CreatedAt:       now,
		UpdatedAt:       now,
		Seats:           make([]SaleSeat, 0, len(session.Seats)),
	}
	for _, pos := range session.Seats {
		attendee, _ := session.AttendeeFor(pos)
		sale.Seats = append(sale.Seats, SaleSeat{
			Row:      pos.Row,
			Column:   pos.Column,
			Name:     attendee.Name,
			Document: attendee.Document,
		})
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, err
	}
	s.log.LogSaleRecorded(ctx, sale.ID.String(), event.ID.String(), userID.String(), sale.Total)

	// 5. Confirm; anything short of acceptance leaves the sale pending
	confirmationID, note := s.confirm(ctx, sale)
	if confirmationID != nil {
		if _, err := s.markConfirmed(ctx, sale, *confirmationID, "confirmed at checkout"); err != nil {
			s.log.ErrorContext(ctx, "sale confirmed externally but not recorded",
				slog.String("sale_id", sale.ID.String()),
				slog.Int64("confirmation_id", *confirmationID),
				slog.String("error", err.Error()))
			return sale, nil
		}
		if err := s.sessions.Clear(ctx, userID); err != nil {
			s.log.WarnContext(ctx, "failed to clear session after sale",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
		}
		return sale, nil
	}

	if err := s.recordAttempt(ctx, sale, note); err != nil {
		s.log.ErrorContext(ctx, "failed to record confirmation attempt",
			slog.String("sale_id", sale.ID.String()),
			slog.String("error", err.Error()))
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, userID uuid.UUID, query SaleListQuery) (*PaginatedSales, error) {
	sales, total, err := s.repo.ListByUser(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	return toPaginated(sales, total, query), nil
}

func (s *service) GetSale(ctx context.Context, userID, saleID uuid.UUID) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.OwnedBy(userID) {
		return nil, apperrors.Forbidden("sale %s belongs to another user", saleID)
	}
	return sale, nil
}

func (s *service) ListAllSales(ctx context.Context, query SaleListQuery) (*PaginatedSales, error) {
	sales, total, err := s.repo.ListAll(ctx, query)
	if err != nil {
		return nil, err
	}
	return toPaginated(sales, total, query), nil
}

// CloseSale lets an operator give up on a pending sale. Confirmed sales are never closed.
func (s *service) CloseSale(ctx context.Context, saleID uuid.UUID, note string) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.IsPending() {
		return nil, apperrors.InvalidState("sale %s is already %s", saleID, sale.Outcome)
	}

	note = strings.TrimSpace(note)
	if note == "" {
		note = "closed manually"
	}
	closed, err := s.repo.Close(ctx, saleID, note, s.now())
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, apperrors.InvalidState("sale %s is no longer pending", saleID)
	}

	s.log.WarnContext(ctx, "sale closed manually",
		slog.String("sale_id", saleID.String()),
		slog.String("note", note))
	return s.repo.GetByID(ctx, saleID)
}

func (s *service) ListPending(ctx context.Context, maxAttempts, limit int) ([]Sale, error) {
	return s.repo.ListPending(ctx, maxAttempts, limit)
}

// RetrySale re-sends the confirmation of a pending sale. The sale is re-read first
// so one confirmed in the meantime is left untouched.
func (s *service) RetrySale(ctx context.Context, saleID uuid.UUID, maxAttempts int) (RetryResult, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return RetrySkipped, err
	}
	if !sale.IsPending() || (maxAttempts > 0 && sale.Attempts >= maxAttempts) {
		return RetrySkipped, nil
	}

	confirmationID, note := s.confirm(ctx, sale)
	if confirmationID != nil {
		confirmed, err := s.markConfirmed(ctx, sale, *confirmationID, fmt.Sprintf("confirmed on attempt %d", sale.Attempts+1))
		if err != nil {
			return RetrySkipped, err
		}
		if !confirmed {
			return RetrySkipped, nil
		}
		return RetryConfirmed, nil
	}

	exhausted := maxAttempts > 0 && sale.Attempts+1 >= maxAttempts
	if exhausted {
		note = fmt.Sprintf("retry limit reached after %d attempts, needs manual review: %s", sale.Attempts+1, note)
	}
	if err := s.recordAttempt(ctx, sale, note); err != nil {
		return RetrySkipped, err
	}
	if exhausted {
		return RetryExhausted, nil
	}
	return RetryStillPending, nil
}

// ConfirmFromExternal records a confirmation discovered in the inventory's sales listing
func (s *service) ConfirmFromExternal(ctx context.Context, sale *Sale, confirmationID int64) (bool, error) {
	if !sale.IsPending() {
		return false, nil
	}
	return s.markConfirmed(ctx, sale, confirmationID, "confirmed by inventory sales listing")
}

func (s *service) ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return s.repo.ConfirmationIDsInUse(ctx, ids)
}

// confirm calls the inventory once. It returns the confirmation id on acceptance,
// otherwise a note describing why the sale stays pending.
func (s *service) confirm(ctx context.Context, sale *Sale) (*int64, string) {
	positions := make([]seats.Position, 0, len(sale.Seats))
	names := make(map[seats.Position]string, len(sale.Seats))
	for _, seat := range sale.Seats {
		pos := seats.Position{Row: seat.Row, Column: seat.Column}
		positions = append(positions, pos)
		names[pos] = seat.Name
	}

	result, err := s.inventory.ConfirmSale(ctx, inventory.SaleRequest{
		EventID: sale.ExternalEventID,
		Date:    s.now().UTC().Format(time.RFC3339),
		Price:   sale.Total,
		Seats:   toInventorySeats(positions, names),
	})
	switch {
	case err != nil:
		return nil, fmt.Sprintf("confirmation failed: %v", err)
	case !result.Accepted:
		reason := result.Reason
		if reason == "" {
			reason = "no reason given"
		}
		return nil, "rejected by inventory: " + reason
	case result.SaleID == 0:
		return nil, "accepted by inventory without a sale id"
	}

	id := result.SaleID
	return &id, ""
}

// markConfirmed reports false when the sale had already left pending; the
// stored state is copied into sale in that case
func (s *service) markConfirmed(ctx context.Context, sale *Sale, confirmationID int64, note string) (bool, error) {
	now := s.now()
	updated, err := s.repo.MarkConfirmed(ctx, sale.ID, confirmationID, note, now)
	if err != nil {
		return false, err
	}
	if !updated {
		current, err := s.repo.GetByID(ctx, sale.ID)
		if err != nil {
			return false, err
		}
		*sale = *current
		return false, nil
	}

	sale.Outcome = OutcomeConfirmed
	sale.ConfirmationID = &confirmationID
	sale.ConfirmedAt = &now
	sale.LastAttemptAt = &now
	sale.Attempts++
	sale.Note = note
	sale.UpdatedAt = now

	s.log.LogSaleConfirmed(ctx, sale.ID.String(), confirmationID, sale.Attempts)
	if err := s.publisher.PublishSaleConfirmed(ctx, sale); err != nil {
		s.log.WarnContext(ctx, "failed to publish sale confirmation",
			slog.String("sale_id", sale.ID.String()),
			slog.String("error", err.Error()))
	}
	return true, nil
}

func (s *service) recordAttempt(ctx context.Context, sale *Sale, note string) error {
	now := s.now()
	updated, err := s.repo.RecordAttempt(ctx, sale.ID, note, now)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	sale.Attempts++
	sale.Note = note
	sale.LastAttemptAt = &now
	sale.UpdatedAt = now

	s.log.LogSalePending(ctx, sale.ID.String(), sale.Attempts, note)
	return nil
}

func toInventorySeats(positions []seats.Position, names map[seats.Position]string) []inventory.Seat {
	out := make([]inventory.Seat, 0, len(positions))
	for _, pos := range positions {
		out = append(out, inventory.Seat{Row: pos.Row, Column: pos.Column, Person: names[pos]})
	}
	return out
}

func samePositions(a, b []seats.Position) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[seats.Position]bool, len(a))
	for _, pos := range a {
		set[pos] = true
	}
	for _, pos := range b {
		if !set[pos] {
			return false
		}
	}
	return true
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
