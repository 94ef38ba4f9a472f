package seats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SeatState is the occupancy of a seat as last observed in the external inventory
type SeatState string

const (
	StateFree   SeatState = "free"
	StateLocked SeatState = "locked"
	StateSold   SeatState = "sold"
)

// ParseState maps the inventory's labels onto SeatState
func ParseState(raw string) (SeatState, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LIBRE", "FREE":
		return StateFree, true
	case "BLOQUEADO", "LOCKED":
		return StateLocked, true
	case "VENDIDO", "OCUPADO", "SOLD":
		return StateSold, true
	}
	return "", false
}

// parseStoredState accepts either a bare label or a JSON object carrying "estado"
func parseStoredState(raw string) (SeatState, bool) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Estado string `json:"estado"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return "", false
		}
		return ParseState(payload.Estado)
	}
	return ParseState(strings.Trim(trimmed, `"`))
}

// Position is a 1-based row/column pair on an event's seat grid
type Position struct {
	Row    int `json:"row" binding:"required,min=1"`
	Column int `json:"column" binding:"required,min=1"`
}

// Key renders the position the way the inventory addresses it, "row:column"
func (p Position) Key() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

func (p Position) String() string {
	return p.Key()
}

// ParsePosition parses a "row:column" key
func ParsePosition(key string) (Position, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("invalid seat key %q", key)
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return Position{}, fmt.Errorf("invalid seat row in %q", key)
	}
	column, err := strconv.Atoi(parts[1])
	if err != nil {
		return Position{}, fmt.Errorf("invalid seat column in %q", key)
	}
	return Position{Row: row, Column: column}, nil
}

type SeatCell struct {
	Row      int       `json:"row"`
	Column   int       `json:"column"`
	State    SeatState `json:"state"`
	Selected bool      `json:"selected"`
}

type SeatMapResponse struct {
	EventID         uuid.UUID         `json:"event_id"`
	ExternalEventID int64             `json:"external_event_id"`
	Rows            int               `json:"rows"`
	Columns         int               `json:"columns"`
	Seats           []SeatCell        `json:"seats"`
	Summary         map[SeatState]int `json:"summary"`
	Degraded        bool              `json:"degraded"`
}

type SeatSummaryResponse struct {
	EventID         uuid.UUID         `json:"event_id"`
	ExternalEventID int64             `json:"external_event_id"`
	TotalSeats      int               `json:"total_seats"`
	Counts          map[SeatState]int `json:"counts"`
	Degraded        bool              `json:"degraded"`
}
