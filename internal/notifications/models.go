package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"seatflow/internal/sales"

	"github.com/go-playground/validator/v10"
)

// Kind tags a change-feed notification. Values follow the proxy's "tipo" field.
type Kind string

const (
	KindNewEvent       Kind = "NUEVO_EVENTO"
	KindEventUpdated   Kind = "EVENTO_ACTUALIZADO"
	KindEventCancelled Kind = "EVENTO_CANCELADO"
	KindSeatLocked     Kind = "ASIENTO_BLOQUEADO"
	KindSeatSold       Kind = "ASIENTO_VENDIDO"
	KindSeatReleased   Kind = "ASIENTO_LIBERADO"
)

// Legacy Kafka messages carry "operacion" instead of "tipo"
var legacyOperations = map[string]Kind{
	"CREATE": KindNewEvent,
	"UPDATE": KindEventUpdated,
	"DELETE": KindEventCancelled,
}

func (k Kind) IsSeat() bool {
	switch k {
	case KindSeatLocked, KindSeatSold, KindSeatReleased:
		return true
	}
	return false
}

func (k Kind) IsEvent() bool {
	switch k {
	case KindNewEvent, KindEventUpdated, KindEventCancelled:
		return true
	}
	return false
}

var (
	ErrMalformed   = errors.New("malformed notification")
	ErrUnknownKind = errors.New("unknown notification kind")
)

// Notification is one decoded change-feed message. The concrete types below are
// the only implementations; Dispatch routes each to its own handler method.
type Notification interface {
	Kind() Kind
	ExternalEventID() int64
	Dispatch(ctx context.Context, h Handler) error
}

// Handler reacts to each notification variant
type Handler interface {
	HandleNewEvent(ctx context.Context, n NewEvent) error
	HandleEventUpdated(ctx context.Context, n EventUpdated) error
	HandleEventCancelled(ctx context.Context, n EventCancelled) error
	HandleSeatLocked(ctx context.Context, n SeatLocked) error
	HandleSeatSold(ctx context.Context, n SeatSold) error
	HandleSeatReleased(ctx context.Context, n SeatReleased) error
}

// EventChange is the payload shared by event notifications
type EventChange struct {
	EventID     int64  `json:"eventoId"`
	Name        string `json:"nombre,omitempty"`
	Date        string `json:"fecha,omitempty"`
	Description string `json:"descripcion,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (e EventChange) ExternalEventID() int64 { return e.EventID }

// SeatChange is the payload shared by seat notifications
type SeatChange struct {
	EventID   int64  `json:"eventoId"`
	Row       int    `json:"fila" validate:"min=1"`
	Column    int    `json:"columna" validate:"min=1"`
	NewState  string `json:"nuevoEstado,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s SeatChange) ExternalEventID() int64 { return s.EventID }

type NewEvent struct{ EventChange }
type EventUpdated struct{ EventChange }
type EventCancelled struct{ EventChange }
type SeatLocked struct{ SeatChange }
type SeatSold struct{ SeatChange }
type SeatReleased struct{ SeatChange }

func (NewEvent) Kind() Kind       { return KindNewEvent }
func (EventUpdated) Kind() Kind   { return KindEventUpdated }
func (EventCancelled) Kind() Kind { return KindEventCancelled }
func (SeatLocked) Kind() Kind     { return KindSeatLocked }
func (SeatSold) Kind() Kind       { return KindSeatSold }
func (SeatReleased) Kind() Kind   { return KindSeatReleased }

func (n NewEvent) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleNewEvent(ctx, n)
}

func (n EventUpdated) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleEventUpdated(ctx, n)
}

func (n EventCancelled) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleEventCancelled(ctx, n)
}

func (n SeatLocked) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleSeatLocked(ctx, n)
}

func (n SeatSold) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleSeatSold(ctx, n)
}

func (n SeatReleased) Dispatch(ctx context.Context, h Handler) error {
	return h.HandleSeatReleased(ctx, n)
}

var validate = validator.New()

type envelope struct {
	Kind      string `json:"tipo"`
	Operation string `json:"operacion"`
	EventID   *int64 `json:"eventoId"`
}

// Decode turns a raw proxy or Kafka message into a Notification. Unknown tags
// and messages without an event id are rejected.
func Decode(data []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.EventID == nil || *env.EventID <= 0 {
		return nil, fmt.Errorf("%w: missing eventoId", ErrMalformed)
	}

	kind := Kind(strings.ToUpper(strings.TrimSpace(env.Kind)))
	if env.Kind == "" {
		legacy, ok := legacyOperations[strings.ToUpper(strings.TrimSpace(env.Operation))]
		if !ok {
			return nil, fmt.Errorf("%w: operacion %q", ErrUnknownKind, env.Operation)
		}
		kind = legacy
	}

	switch {
	case kind.IsEvent():
		var change EventChange
		if err := json.Unmarshal(data, &change); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch kind {
		case KindNewEvent:
			return NewEvent{change}, nil
		case KindEventUpdated:
			return EventUpdated{change}, nil
		default:
			return EventCancelled{change}, nil
		}

	case kind.IsSeat():
		var change SeatChange
		if err := json.Unmarshal(data, &change); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := validate.Struct(change); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch kind {
		case KindSeatLocked:
			return SeatLocked{change}, nil
		case KindSeatSold:
			return SeatSold{change}, nil
		default:
			return SeatReleased{change}, nil
		}
	}

	return nil, fmt.Errorf("%w: tipo %q", ErrUnknownKind, env.Kind)
}

// SaleConfirmedMessage is published when a sale reaches the confirmed outcome
type SaleConfirmedMessage struct {
	Type            string    `json:"type"`
	SaleID          string    `json:"sale_id"`
	ConfirmationID  int64     `json:"confirmation_id"`
	UserID          string    `json:"user_id"`
	EventID         string    `json:"event_id"`
	ExternalEventID int64     `json:"external_event_id"`
	Seats           int       `json:"seats"`
	Total           float64   `json:"total"`
	Attempts        int       `json:"attempts"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

const SaleConfirmedType = "sale.confirmed"

func NewSaleConfirmedMessage(sale *sales.Sale) SaleConfirmedMessage {
	msg := SaleConfirmedMessage{
		Type:            SaleConfirmedType,
		SaleID:          sale.ID.String(),
		UserID:          sale.UserID.String(),
		EventID:         sale.EventID.String(),
		ExternalEventID: sale.ExternalEventID,
		Seats:           len(sale.Seats),
		Total:           sale.Total,
		Attempts:        sale.Attempts,
	}
	if sale.ConfirmationID != nil {
		msg.ConfirmationID = *sale.ConfirmationID
	}
	if sale.ConfirmedAt != nil {
		msg.ConfirmedAt = *sale.ConfirmedAt
	}
	return msg
}

func (m SaleConfirmedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
