package sales

import (
	"context"
	"errors"
	"time"

	"seatflow/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the sale ledger. Outcome transitions are guarded in SQL so a
// confirmed sale can never be touched again, whoever races for it.
type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	ListByUser(ctx context.Context, userID uuid.UUID, query SaleListQuery) ([]Sale, int64, error)
	ListAll(ctx context.Context, query SaleListQuery) ([]Sale, int64, error)
	// ListPending returns the oldest pending sales; maxAttempts <= 0 means no ceiling
	ListPending(ctx context.Context, maxAttempts, limit int) ([]Sale, error)
	ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error)

	// Each transition reports false when the sale was no longer pending
	MarkConfirmed(ctx context.Context, id uuid.UUID, confirmationID int64, note string, at time.Time) (bool, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, note string, at time.Time) (bool, error)
	Close(ctx context.Context, id uuid.UUID, note string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sale *Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return apperrors.Internal(err, "failed to record sale")
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	var sale Sale
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("sale %s not found", id)
		}
		return nil, apperrors.Internal(err, "failed to load sale")
	}
	return &sale, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, query SaleListQuery) ([]Sale, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&Sale{}).Where("user_id = ?", userID), query)
}

func (r *repository) ListAll(ctx context.Context, query SaleListQuery) ([]Sale, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&Sale{}), query)
}

func (r *repository) list(ctx context.Context, baseQuery *gorm.DB, query SaleListQuery) ([]Sale, int64, error) {
	query.normalize()

	if query.Outcome != "" {
		baseQuery = baseQuery.Where("outcome = ?", query.Outcome)
	}

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count sales")
	}

	var sales []Sale
	err := baseQuery.
		Preload("Seats").
		Order("created_at DESC").
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&sales).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to list sales")
	}
	return sales, totalCount, nil
}

func (r *repository) ListPending(ctx context.Context, maxAttempts, limit int) ([]Sale, error) {
	q := r.db.WithContext(ctx).
		Preload("Seats").
		Where("outcome = ?", OutcomePending)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var sales []Sale
	if err := q.Order("created_at ASC").Find(&sales).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list pending sales")
	}
	return sales, nil
}

func (r *repository) ConfirmationIDsInUse(ctx context.Context, ids []int64) (map[int64]bool, error) {
	inUse := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return inUse, nil
	}

	var found []int64
	err := r.db.WithContext(ctx).
		Model(&Sale{}).
		Where("confirmation_id IN ?", ids).
		Pluck("confirmation_id", &found).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to look up confirmation ids")
	}
	for _, id := range found {
		inUse[id] = true
	}
	return inUse, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmationID int64, note string, at time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"outcome":         OutcomeConfirmed,
		"confirmation_id": confirmationID,
		"confirmed_at":    at,
		"last_attempt_at": at,
		"attempts":        gorm.Expr("attempts + 1"),
		"note":            note,
		"updated_at":      at,
	})
}

func (r *repository) RecordAttempt(ctx context.Context, id uuid.UUID, note string, at time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_attempt_at": at,
		"note":            note,
		"updated_at":      at,
	})
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, note string, at time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"outcome":    OutcomeFailed,
		"note":       note,
		"updated_at": at,
	})
}

// transition applies updates only while the sale is still pending
func (r *repository) transition(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Sale{}).
		Where("id = ? AND outcome = ?", id, OutcomePending).
		Updates(updates)
	if result.Error != nil {
		return false, apperrors.Internal(result.Error, "failed to update sale %s", id)
	}
	return result.RowsAffected > 0, nil
}
