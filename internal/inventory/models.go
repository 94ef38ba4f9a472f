package inventory

import (
	"time"
)

// Wire formats of the external inventory API. JSON names follow the upstream contract.

// Seat addresses a seat and optionally carries the attendee or the observed state
type Seat struct {
	Row    int    `json:"fila"`
	Column int    `json:"columna"`
	Person string `json:"persona,omitempty"`
	Status string `json:"estado,omitempty"`
}

type LockRequest struct {
	EventID int64  `json:"eventoId"`
	Seats   []Seat `json:"asientos"`
}

type LockResult struct {
	Accepted bool   `json:"resultado"`
	Reason   string `json:"descripcion"`
	EventID  int64  `json:"eventoId"`
	Seats    []Seat `json:"asientos"`
}

type SaleRequest struct {
	EventID int64   `json:"eventoId"`
	Date    string  `json:"fecha"`
	Price   float64 `json:"precioVenta"`
	Seats   []Seat  `json:"asientos"`
}

type SaleResult struct {
	EventID  int64   `json:"eventoId"`
	SaleID   int64   `json:"ventaId"`
	SoldAt   string  `json:"fechaVenta"`
	Seats    []Seat  `json:"asientos"`
	Accepted bool    `json:"resultado"`
	Reason   string  `json:"descripcion"`
	Price    float64 `json:"precioVenta"`
}

// SaleSummary is one row of the external sales listing
type SaleSummary struct {
	EventID   int64   `json:"eventoId"`
	SaleID    int64   `json:"ventaId"`
	SoldAt    string  `json:"fechaVenta"`
	Accepted  bool    `json:"resultado"`
	Reason    string  `json:"descripcion"`
	Price     float64 `json:"precioVenta"`
	SeatCount int     `json:"cantidadAsientos"`
}

// CatalogEvent is an event as published by the inventory. Grid dimensions may be missing.
type CatalogEvent struct {
	ID          int64   `json:"id"`
	Title       string  `json:"titulo"`
	Summary     string  `json:"resumen"`
	Description string  `json:"descripcion"`
	Date        string  `json:"fecha"`
	Address     string  `json:"direccion"`
	Image       string  `json:"imagen"`
	Rows        *int    `json:"filaAsientos"`
	Columns     *int    `json:"columnAsientos"`
	Price       float64 `json:"precioEntrada"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsedDate returns the event date, or false when it is missing or unparseable
func (e CatalogEvent) ParsedDate() (time.Time, bool) {
	return parseDate(e.Date)
}

// ParsedSoldAt returns the sale time, or false when it is missing or unparseable
func (s SaleSummary) ParsedSoldAt() (time.Time, bool) {
	return parseDate(s.SoldAt)
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
