package sales

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sale is the durable record of a checkout. Rows are never deleted.
type Sale struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConfirmationID  *int64     `gorm:"uniqueIndex" json:"confirmation_id,omitempty"`
	UserID          uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	EventID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	ExternalEventID int64      `gorm:"index;not null" json:"external_event_id"`
	EventTitle      string     `gorm:"type:varchar(255)" json:"event_title"`
	UnitPrice       float64    `gorm:"not null" json:"unit_price"`
	Total           float64    `gorm:"not null" json:"total"`
	Outcome         Outcome    `gorm:"type:varchar(20);index;not null;default:'pending';check:outcome IN ('pending', 'confirmed', 'failed')" json:"outcome"`
	Note            string     `gorm:"type:text" json:"note"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relationships
	Seats []SaleSeat `json:"seats" gorm:"foreignKey:SaleID;constraint:OnDelete:RESTRICT;"`
}

// SaleSeat snapshots one seat and its attendee at checkout time
type SaleSeat struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	SaleID   uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Row      int       `gorm:"column:seat_row;not null" json:"row"`
	Column   int       `gorm:"column:seat_column;not null" json:"column"`
	Name     string    `gorm:"type:varchar(120);not null" json:"name"`
	Document string    `gorm:"type:varchar(40)" json:"document,omitempty"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *SaleSeat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName sets the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// TableName sets the table name for SaleSeat
func (SaleSeat) TableName() string {
	return "sale_seats"
}

func (s *Sale) IsPending() bool {
	return s.Outcome == OutcomePending
}

func (s *Sale) IsConfirmed() bool {
	return s.Outcome == OutcomeConfirmed
}

func (s *Sale) OwnedBy(userID uuid.UUID) bool {
	return s.UserID == userID
}

// SaleListQuery filters a sales listing; Outcome is optional
type SaleListQuery struct {
	Outcome Outcome `form:"outcome" binding:"omitempty,oneof=pending confirmed failed"`
	Offset  int     `form:"offset" binding:"omitempty,min=0"`
	Limit   int     `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q *SaleListQuery) normalize() {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}
