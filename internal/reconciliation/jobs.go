package reconciliation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"seatflow/internal/sales"
	"seatflow/internal/shared/config"
	"seatflow/pkg/logger"
)

const (
	JobRetryPending = "retry_pending"
	JobCatalogSync  = "catalog_sync"
	JobSaleSync     = "sale_sync"
)

// JobConfig contains configuration for background jobs
type JobConfig struct {
	RetryInterval    time.Duration
	CatalogInterval  time.Duration
	SaleSyncInterval time.Duration
	MaxAttempts      int
	BatchSize        int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		RetryInterval:    5 * time.Minute,
		CatalogInterval:  30 * time.Minute,
		SaleSyncInterval: 15 * time.Minute,
		MaxAttempts:      3,
		BatchSize:        100,
	}
}

// JobConfigFromConfig fills the job schedule from application config, keeping defaults for zero values
func JobConfigFromConfig(cfg config.ReconciliationConfig) *JobConfig {
	jc := DefaultJobConfig()
	if cfg.RetryInterval > 0 {
		jc.RetryInterval = cfg.RetryInterval
	}
	if cfg.CatalogInterval > 0 {
		jc.CatalogInterval = cfg.CatalogInterval
	}
	if cfg.SaleSyncInterval > 0 {
		jc.SaleSyncInterval = cfg.SaleSyncInterval
	}
	if cfg.MaxAttempts > 0 {
		jc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BatchSize > 0 {
		jc.BatchSize = cfg.BatchSize
	}
	return jc
}

// RetryReport summarizes one pass over pending sales
type RetryReport struct {
	Selected  int `json:"selected"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Exhausted int `json:"exhausted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// JobRun records the latest run of one duty
type JobRun struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Result    interface{}   `json:"result,omitempty"`
}

// JobProcessor runs the reconciliation duties on independent tickers
type JobProcessor struct {
	ledger  SaleLedger
	catalog *CatalogSyncer
	sales   *SaleSyncer
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	running bool
	lastRun map[string]JobRun
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(ledger SaleLedger, catalog *CatalogSyncer, saleSyncer *SaleSyncer, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		ledger:  ledger,
		catalog: catalog,
		sales:   saleSyncer,
		config:  config,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
		lastRun: make(map[string]JobRun),
	}
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.mu.Lock()
	jp.running = true
	jp.mu.Unlock()

	go jp.schedule(ctx, JobRetryPending, jp.config.RetryInterval, func(ctx context.Context) (interface{}, error) {
		return jp.RetryPending(ctx)
	})
	go jp.schedule(ctx, JobCatalogSync, jp.config.CatalogInterval, func(ctx context.Context) (interface{}, error) {
		return jp.SyncCatalog(ctx)
	})
	go jp.schedule(ctx, JobSaleSync, jp.config.SaleSyncInterval, func(ctx context.Context) (interface{}, error) {
		return jp.SyncSales(ctx)
	})

	jp.log.Info("reconciliation jobs started",
		slog.Duration("retry_interval", jp.config.RetryInterval),
		slog.Duration("catalog_interval", jp.config.CatalogInterval),
		slog.Duration("sale_sync_interval", jp.config.SaleSyncInterval))
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	jp.once.Do(func() {
		close(jp.done)
		jp.mu.Lock()
		jp.running = false
		jp.mu.Unlock()
		jp.log.Info("reconciliation jobs stopped")
	})
}

func (jp *JobProcessor) schedule(ctx context.Context, name string, interval time.Duration, run func(context.Context) (interface{}, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.log.DebugContext(ctx, "running reconciliation job", slog.String("job", name))
			// A failed run just waits for the next tick
			_, _ = run(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RetryPending re-sends confirmation for pending sales under the attempt ceiling.
// Each sale is handled on its own; one failure never stops the batch.
func (jp *JobProcessor) RetryPending(ctx context.Context) (*RetryReport, error) {
	start := time.Now()
	report := &RetryReport{}

	pending, err := jp.ledger.ListPending(ctx, jp.config.MaxAttempts, jp.config.BatchSize)
	if err != nil {
		jp.record(JobRetryPending, start, nil, err)
		return nil, err
	}
	report.Selected = len(pending)

	for _, sale := range pending {
		result, err := jp.ledger.RetrySale(ctx, sale.ID, jp.config.MaxAttempts)
		if err != nil {
			report.Failed++
			jp.log.ErrorContext(ctx, "pending sale retry failed",
				slog.String("sale_id", sale.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		switch result {
		case sales.RetryConfirmed:
			report.Confirmed++
		case sales.RetryStillPending:
			report.Pending++
		case sales.RetryExhausted:
			report.Exhausted++
			jp.log.WarnContext(ctx, "pending sale needs manual review",
				slog.String("sale_id", sale.ID.String()))
		default:
			report.Skipped++
		}
	}

	if report.Selected > 0 {
		jp.log.InfoContext(ctx, "Pending Sales Retried",
			slog.Int("selected", report.Selected),
			slog.Int("confirmed", report.Confirmed),
			slog.Int("pending", report.Pending),
			slog.Int("exhausted", report.Exhausted),
			slog.Int("failed", report.Failed))
	}
	jp.record(JobRetryPending, start, report, nil)
	return report, nil
}

func (jp *JobProcessor) SyncCatalog(ctx context.Context) (*SyncReport, error) {
	start := time.Now()
	report, err := jp.catalog.SyncAll(ctx)
	if err != nil {
		jp.log.ErrorContext(ctx, "catalog sync failed", slog.String("error", err.Error()))
	}
	jp.record(JobCatalogSync, start, report, err)
	return report, err
}

// SyncEvent refreshes a single event outside the schedule
func (jp *JobProcessor) SyncEvent(ctx context.Context, externalID int64) (SyncOutcome, error) {
	return jp.catalog.SyncEvent(ctx, externalID)
}

func (jp *JobProcessor) SyncSales(ctx context.Context) (*SaleSyncReport, error) {
	start := time.Now()
	report, err := jp.sales.Sync(ctx)
	if err != nil {
		jp.log.ErrorContext(ctx, "sale sync failed", slog.String("error", err.Error()))
	}
	jp.record(JobSaleSync, start, report, err)
	return report, err
}

func (jp *JobProcessor) record(name string, start time.Time, result interface{}, err error) {
	run := JobRun{StartedAt: start, Duration: time.Since(start)}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Result = result
	}

	jp.mu.Lock()
	jp.lastRun[name] = run
	jp.mu.Unlock()
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	jp.mu.Lock()
	defer jp.mu.Unlock()

	runs := make(map[string]JobRun, len(jp.lastRun))
	for name, run := range jp.lastRun {
		runs[name] = run
	}

	return map[string]interface{}{
		"running":            jp.running,
		"retry_interval":     jp.config.RetryInterval.String(),
		"catalog_interval":   jp.config.CatalogInterval.String(),
		"sale_sync_interval": jp.config.SaleSyncInterval.String(),
		"max_attempts":       jp.config.MaxAttempts,
		"batch_size":         jp.config.BatchSize,
		"last_runs":          runs,
	}
}
