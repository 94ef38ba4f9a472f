package inventory

import (
	"bytes"
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

const apiPath = "/api/endpoints/v1"

// Client talks to the external inventory, the source of truth for seats and sales.
// Transport failures and timeouts come back as ServiceUnavailable, never as a negative answer.
type Client interface {
	LockSeats(ctx context.Context, externalEventID int64, seats []Seat) (*LockResult, error)
	ConfirmSale(ctx context.Context, req SaleRequest) (*SaleResult, error)
	ListCatalog(ctx context.Context) ([]CatalogEvent, error)
	// GetEvent returns nil without error when the inventory does not know the event
	GetEvent(ctx context.Context, externalEventID int64) (*CatalogEvent, error)
	ListSales(ctx context.Context) ([]SaleSummary, error)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.InventoryConfig) Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewClientWithHTTP(cfg config.InventoryConfig, httpClient *http.Client) Client {
	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + apiPath,
		token:   cfg.Token,
		http:    httpClient,
		log:     logger.GetDefault(),
	}
}

func (c *client) LockSeats(ctx context.Context, externalEventID int64, seats []Seat) (*LockResult, error) {
	var result LockResult
	req := LockRequest{EventID: externalEventID, Seats: seats}
	if _, err := c.do(ctx, "lock-seats", http.MethodPost, "/bloquear-asientos", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) ConfirmSale(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	if req.Date == "" {
		req.Date = time.Now().UTC().Format(time.RFC3339)
	}
	var result SaleResult
	if _, err := c.do(ctx, "confirm-sale", http.MethodPost, "/realizar-venta", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) ListCatalog(ctx context.Context) ([]CatalogEvent, error) {
	var catalog []CatalogEvent
	if _, err := c.do(ctx, "list-catalog", http.MethodGet, "/eventos", nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *client) GetEvent(ctx context.Context, externalEventID int64) (*CatalogEvent, error) {
	var event CatalogEvent
	status, err := c.do(ctx, "get-event", http.MethodGet, fmt.Sprintf("/evento/%d", externalEventID), nil, &event)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (c *client) ListSales(ctx context.Context) ([]SaleSummary, error) {
	var sales []SaleSummary
	if _, err := c.do(ctx, "list-sales", http.MethodGet, "/listar-ventas", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// do performs one round trip and decodes a 2xx body into dest. The status is returned even on error.
func (c *client) do(ctx context.Context, op, method, path string, body, dest interface{}) (status int, err error) {
	start := time.Now()
	defer func() { c.log.LogExternalCall(ctx, "inventory", op, time.Since(start), err) }()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, apperrors.Internal(err, "failed to encode %s request", op)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, apperrors.Internal(err, "failed to build %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperrors.Unavailable(err, "inventory %s failed", op)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, apperrors.Unavailable(err, "inventory %s: reading response", op)
	}

	switch {
	case resp.StatusCode >= 500:
		return resp.StatusCode, apperrors.Unavailable(errors.New(resp.Status), "inventory %s failed", op)
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, apperrors.NotFound("inventory %s: not found", op)
	case resp.StatusCode >= 400:
		return resp.StatusCode, apperrors.BadRequest("inventory rejected %s: %s", op, strings.TrimSpace(string(raw)))
	}

	if dest != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, dest); err != nil {
			return resp.StatusCode, apperrors.Unavailable(err, "inventory %s: malformed response", op)
		}
	}
	return resp.StatusCode, nil
}
