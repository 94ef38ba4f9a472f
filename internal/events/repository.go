package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"seatflow/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetByExternalID(ctx context.Context, externalID int64) (*Event, error)
	GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error)
	ListActive(ctx context.Context) ([]Event, error)
	// Upsert inserts or overwrites by external id and reports whether a row was created
	Upsert(ctx context.Context, event *Event) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event %s not found", id)
		}
		return nil, apperrors.Internal(err, "failed to load event")
	}
	return &event, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID int64) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event with external id %d not found", externalID)
		}
		return nil, apperrors.Internal(err, "failed to load event")
	}
	return &event, nil
}

func (r *repository) GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error) {
	var events []Event
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Event{}).Where("status = ?", StatusActive)

	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(address) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count events")
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}
	offset := (query.Page - 1) * query.Limit

	err := db.Order("date ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to list events")
	}

	return events, totalCount, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).Where("status = ?", StatusActive).Find(&events).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list active events")
	}
	return events, nil
}

func (r *repository) Upsert(ctx context.Context, event *Event) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Event
		err := lockByExternalID(tx, event.ExternalID).First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(event).Error
		case err != nil:
			return err
		}

		event.ID = existing.ID
		event.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).Updates(map[string]interface{}{
			"title":          event.Title,
			"summary":        event.Summary,
			"description":    event.Description,
			"date":           event.Date,
			"address":        event.Address,
			"image_url":      event.ImageURL,
			"seat_rows":      event.Rows,
			"seat_columns":   event.Columns,
			"price":          event.Price,
			"status":         event.Status,
			"deactivated_at": event.DeactivatedAt,
			"synced_at":      event.SyncedAt,
		}).Error
	})
	if err != nil {
		return false, apperrors.Internal(err, "failed to upsert event %d", event.ExternalID)
	}
	return created, nil
}

// lockByExternalID selects the event row FOR UPDATE so concurrent syncs of one event serialize
func lockByExternalID(tx *gorm.DB, externalID int64) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("external_id = ?", externalID)
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         StatusInactive,
			"deactivated_at": at,
		})
	if result.Error != nil {
		return apperrors.Internal(result.Error, "failed to deactivate event")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("event %s not found", id)
	}
	return nil
}

