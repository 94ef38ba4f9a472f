package sales

import (
	"time"

	"seatflow/internal/sessions"
)

type SaleResponse struct {
	ID              string         `json:"id"`
	ConfirmationID  *int64         `json:"confirmation_id,omitempty"`
	EventID         string         `json:"event_id"`
	ExternalEventID int64          `json:"external_event_id"`
	EventTitle      string         `json:"event_title"`
	Seats           []SaleSeatInfo `json:"seats"`
	UnitPrice       float64        `json:"unit_price"`
	Total           float64        `json:"total"`
	Outcome         Outcome        `json:"outcome"`
	Note            string         `json:"note,omitempty"`
	Attempts        int            `json:"attempts"`
	CreatedAt       time.Time      `json:"created_at"`
	ConfirmedAt     *time.Time     `json:"confirmed_at,omitempty"`
}

type SaleSeatInfo struct {
	Row      int    `json:"row"`
	Column   int    `json:"column"`
	Name     string `json:"name"`
	Document string `json:"document,omitempty"`
}

type PaginatedSales struct {
	Sales      []SaleResponse `json:"sales"`
	TotalCount int64          `json:"total_count"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
}

// SeatLockStatus is the inventory's verdict for one seat of a lock request
type SeatLockStatus struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Status string `json:"status"`
}

type LockSeatsResponse struct {
	Session sessions.SessionResponse `json:"session"`
	Seats   []SeatLockStatus         `json:"seats"`
}

func (s *Sale) ToResponse() SaleResponse {
	seatInfo := make([]SaleSeatInfo, 0, len(s.Seats))
	for _, seat := range s.Seats {
		seatInfo = append(seatInfo, SaleSeatInfo{
			Row:      seat.Row,
			Column:   seat.Column,
			Name:     seat.Name,
			Document: seat.Document,
		})
	}

	return SaleResponse{
		ID:              s.ID.String(),
		ConfirmationID:  s.ConfirmationID,
		EventID:         s.EventID.String(),
		ExternalEventID: s.ExternalEventID,
		EventTitle:      s.EventTitle,
		Seats:           seatInfo,
		UnitPrice:       s.UnitPrice,
		Total:           s.Total,
		Outcome:         s.Outcome,
		Note:            s.Note,
		Attempts:        s.Attempts,
		CreatedAt:       s.CreatedAt,
		ConfirmedAt:     s.ConfirmedAt,
	}
}

func toPaginated(sales []Sale, total int64, query SaleListQuery) *PaginatedSales {
	query.normalize()
	items := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, sales[i].ToResponse())
	}
	return &PaginatedSales{
		Sales:      items,
		TotalCount: total,
		Offset:     query.Offset,
		Limit:      query.Limit,
	}
}
