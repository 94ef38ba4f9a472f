package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is the local copy of an event published by the external inventory.
// ExternalID is the inventory's identifier and the upsert key.
type Event struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	ExternalID    int64       `json:"external_id" gorm:"not null;uniqueIndex"`
	Title         string      `json:"title" gorm:"not null;size:255"`
	Summary       string      `json:"summary" gorm:"size:500"`
	Description   string      `json:"description" gorm:"type:text"`
	Date          time.Time   `json:"date"`
	Address       string      `json:"address" gorm:"size:255"`
	ImageURL      string      `json:"image_url" gorm:"size:500"`
	Rows          int         `json:"rows" gorm:"column:seat_rows;not null;check:seat_rows > 0"`
	Columns       int         `json:"columns" gorm:"column:seat_columns;not null;check:seat_columns > 0"`
	Price         float64     `json:"price" gorm:"not null;check:price >= 0"`
	Status        EventStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	DeactivatedAt *time.Time  `json:"deactivated_at,omitempty"`
	SyncedAt      time.Time   `json:"synced_at"`
	CreatedAt     time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *Event) IsActive() bool {
	return e.Status == StatusActive
}

// ContainsSeat reports whether a 1-based row/column falls inside the seat grid
func (e *Event) ContainsSeat(row, column int) bool {
	return row >= 1 && column >= 1 && row <= e.Rows && column <= e.Columns
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

type EventResponse struct {
	ID          string      `json:"id"`
	ExternalID  int64       `json:"external_id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Address     string      `json:"address"`
	ImageURL    string      `json:"image_url"`
	Rows        int         `json:"rows"`
	Columns     int         `json:"columns"`
	TotalSeats  int         `json:"total_seats"`
	Price       float64     `json:"price"`
	Status      EventStatus `json:"status"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type EventListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
}

type PaginatedEvents struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		ExternalID:  e.ExternalID,
		Title:       e.Title,
		Summary:     e.Summary,
		Description: e.Description,
		Date:        e.Date,
		Address:     e.Address,
		ImageURL:    e.ImageURL,
		Rows:        e.Rows,
		Columns:     e.Columns,
		TotalSeats:  e.Rows * e.Columns,
		Price:       e.Price,
		Status:      e.Status,
		UpdatedAt:   e.UpdatedAt,
	}
}
