package reconciliation

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"seatflow/internal/inventory"
	"seatflow/internal/sales"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
)

const (
	priceTolerance = 0.005
	// soldAtSkew tolerates clock drift between this service and the inventory
	soldAtSkew = 5 * time.Minute
)

// SaleLedger is the part of sales.Service the reconciler drives
type SaleLedger interface {
	ListPending(ctx context.Context, maxAttempts, limit int) ([]sales.Sale, error)
	RetrySale(ctx context.Context, saleID uuid.UUID, maxAttempts int) (sales.RetryResult, error)
	ConfirmFromExternal(ctx context.Context, sale *sales.Sale, confirmationID int64) (bool, error)
	ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error)
}

type SaleSyncReport struct {
	External  int           `json:"external"`
	Pending   int           `json:"pending"`
	Confirmed int           `json:"confirmed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// SaleSyncer confirms pending sales the inventory already accepted, e.g. when the
// confirm response was lost to a timeout. It only ever moves sales to confirmed.
type SaleSyncer struct {
	inventory inventory.Client
	ledger    SaleLedger
	batchSize int
	log       *logger.Logger
	now       func() time.Time
}

func NewSaleSyncer(inventoryClient inventory.Client, ledger SaleLedger, batchSize int) *SaleSyncer {
	return &SaleSyncer{
		inventory: inventoryClient,
		ledger:    ledger,
		batchSize: batchSize,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
}

func (s *SaleSyncer) Sync(ctx context.Context) (*SaleSyncReport, error) {
	start := s.now()
	report := &SaleSyncReport{}

	// Every pending sale is a candidate here, including those past the retry ceiling
	pending, err := s.ledger.ListPending(ctx, 0, s.batchSize)
	if err != nil {
		return nil, err
	}
	report.Pending = len(pending)
	if len(pending) == 0 {
		report.Duration = s.now().Sub(start)
		return report, nil
	}

	external, err := s.inventory.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	report.External = len(external)

	candidates, err := s.unclaimed(ctx, external)
	if err != nil {
		return nil, err
	}

	for i := range pending {
		sale := &pending[i]
		idx := matchExternal(sale, candidates)
		if idx < 0 {
			continue
		}
		match := candidates[idx]

		confirmed, err := s.ledger.ConfirmFromExternal(ctx, sale, match.SaleID)
		if err != nil {
			report.Failed++
			s.log.ErrorContext(ctx, "sale sync confirmation failed",
				slog.String("sale_id", sale.ID.String()),
				slog.Int64("confirmation_id", match.SaleID),
				slog.String("error", err.Error()))
			continue
		}
		// Not confirmed means the sale left pending meanwhile; the external sale stays available
		if confirmed {
			candidates = append(candidates[:idx], candidates[idx+1:]...)
			report.Confirmed++
		}
	}

	report.Duration = s.now().Sub(start)
	s.log.InfoContext(ctx, "Sales Synced",
		slog.Int("external", report.External),
		slog.Int("pending", report.Pending),
		slog.Int("confirmed", report.Confirmed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// unclaimed returns the accepted external sales no local sale has confirmed yet,
// oldest first so they pair with the oldest pending sales
func (s *SaleSyncer) unclaimed(ctx context.Context, external []inventory.SaleSummary) ([]inventory.SaleSummary, error) {
	accepted := make([]inventory.SaleSummary, 0, len(external))
	ids := make([]int64, 0, len(external))
	for _, ext := range external {
		if !ext.Accepted || ext.SaleID == 0 {
			continue
		}
		accepted = append(accepted, ext)
		ids = append(ids, ext.SaleID)
	}
	if len(accepted) == 0 {
		return accepted, nil
	}

	inUse, err := s.ledger.ConfirmationIDsInUse(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := accepted[:0]
	for _, ext := range accepted {
		if !inUse[ext.SaleID] {
			out = append(out, ext)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := out[i].ParsedSoldAt()
		tj, okJ := out[j].ParsedSoldAt()
		if okI != okJ {
			return okI
		}
		return okI && ti.Before(tj)
	})
	return out, nil
}

// matchExternal finds an external sale for the same event, seat count and price that
// happened after the local sale was recorded. Undated external sales never match.
func matchExternal(sale *sales.Sale, candidates []inventory.SaleSummary) int {
	notBefore := sale.CreatedAt.Add(-soldAtSkew)
	for i, ext := range candidates {
		if ext.EventID != sale.ExternalEventID {
			continue
		}
		soldAt, ok := ext.ParsedSoldAt()
		if !ok || soldAt.Before(notBefore) {
			continue
		}
		if ext.SeatCount != len(sale.Seats) {
			continue
		}
		if math.Abs(ext.Price-sale.Total) > priceTolerance {
			continue
		}
		return i
	}
	return -1
}
