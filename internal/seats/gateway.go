package seats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/config"
	"seatflow/pkg/logger"
)

// ErrSeatUnknown is returned when the inventory has no record for a seat or event
var ErrSeatUnknown = errors.New("seat state unknown")

// Gateway reads seat occupancy from the external inventory. It never mutates state.
type Gateway interface {
	QueryOne(ctx context.Context, externalEventID int64, row, column int) (SeatState, error)
	QueryAll(ctx context.Context, externalEventID int64) (map[Position]SeatState, error)
	Summary(ctx context.Context, externalEventID int64) (map[SeatState]int, error)
	Health(ctx context.Context) error
}

type proxyGateway struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewProxyGateway queries seat state through the intermediary proxy
func NewProxyGateway(cfg config.ProxyConfig) Gateway {
	return &proxyGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + cfg.BasePath,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.GetDefault(),
	}
}

type proxySeatState struct {
	EventID   int64  `json:"eventoId"`
	Row       int    `json:"fila"`
	Column    int    `json:"columna"`
	State     string `json:"estado"`
	Timestamp string `json:"timestamp"`
}

type proxySeatMap struct {
	EventID    int64                      `json:"eventoId"`
	Seats      map[string]json.RawMessage `json:"asientos"`
	Summary    map[string]int             `json:"resumen"`
	TotalSeats int                        `json:"totalAsientos"`
}

type proxySummary struct {
	Summary map[string]int `json:"resumen"`
}

type proxyHealth struct {
	Status string `json:"status"`
}

func (g *proxyGateway) QueryOne(ctx context.Context, externalEventID int64, row, column int) (SeatState, error) {
	var body proxySeatState
	path := fmt.Sprintf("/asientos/estado/%d/%d/%d", externalEventID, row, column)
	if err := g.get(ctx, "seat-state", path, &body); err != nil {
		return "", err
	}

	state, ok := ParseState(body.State)
	if !ok {
		return "", fmt.Errorf("%w: unrecognised state %q", ErrSeatUnknown, body.State)
	}
	return state, nil
}

func (g *proxyGateway) QueryAll(ctx context.Context, externalEventID int64) (map[Position]SeatState, error) {
	var body proxySeatMap
	if err := g.get(ctx, "seat-map", fmt.Sprintf("/asientos/mapa/%d", externalEventID), &body); err != nil {
		return nil, err
	}

	states := make(map[Position]SeatState, len(body.Seats))
	for key, raw := range body.Seats {
		pos, err := ParsePosition(key)
		if err != nil {
			continue
		}
		if state, ok := parseStoredState(string(raw)); ok {
			states[pos] = state
		}
	}
	return states, nil
}

func (g *proxyGateway) Summary(ctx context.Context, externalEventID int64) (map[SeatState]int, error) {
	var body proxySummary
	if err := g.get(ctx, "seat-summary", fmt.Sprintf("/asientos/resumen/%d", externalEventID), &body); err != nil {
		return nil, err
	}
	return normaliseCounts(body.Summary), nil
}

func (g *proxyGateway) Health(ctx context.Context) error {
	var body proxyHealth
	if err := g.get(ctx, "health", "/health", &body); err != nil {
		return err
	}
	if body.Status != "UP" {
		return apperrors.Unavailable(nil, "proxy reports status %q", body.Status)
	}
	return nil
}

func (g *proxyGateway) get(ctx context.Context, op, path string, dest interface{}) (err error) {
	start := time.Now()
	defer func() { g.log.LogExternalCall(ctx, "proxy", op, time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return apperrors.Internal(err, "failed to build proxy request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return apperrors.Unavailable(err, "proxy %s failed", op)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSeatUnknown
	}
	if resp.StatusCode >= 300 {
		return apperrors.Unavailable(errors.New(resp.Status), "proxy %s failed", op)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dest); err != nil {
		return apperrors.Unavailable(err, "proxy %s: malformed response", op)
	}
	return nil
}

// normaliseCounts folds the inventory's labels onto SeatState, dropping unknown ones
func normaliseCounts(raw map[string]int) map[SeatState]int {
	counts := map[SeatState]int{}
	for label, n := range raw {
		if state, ok := ParseState(label); ok {
			counts[state] += n
		}
	}
	return counts
}
