package seats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/config"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxy(t *testing.T, handler http.HandlerFunc) Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProxyGateway(config.ProxyConfig{BaseURL: srv.URL, BasePath: "/api/proxy", Timeout: time.Second})
}

func TestParseState(t *testing.T) {
	cases := map[string]SeatState{
		"LIBRE":     StateFree,
		"Bloqueado": StateLocked,
		"VENDIDO":   StateSold,
		"OCUPADO":   StateSold,
	}
	for raw, want := range cases {
		got, ok := ParseState(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseState("RESERVADO")
	assert.False(t, ok)
}

func TestProxyQueryOne(t *testing.T) {
	gw := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/proxy/asientos/estado/5/2/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"eventoId":5,"fila":2,"columna":1,"estado":"BLOQUEADO","timestamp":"2026-10-01T10:00:00Z"}`))
	})

	state, err := gw.QueryOne(context.Background(), 5, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)
}

func TestProxyQueryOneNotFound(t *testing.T) {
	gw := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := gw.QueryOne(context.Background(), 5, 2, 1)
	assert.True(t, errors.Is(err, ErrSeatUnknown))
}

func TestProxyQueryAllParsesBothValueShapes(t *testing.T) {
	gw := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/proxy/asientos/mapa/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"eventoId":5,"asientos":{"1:1":"VENDIDO","1:2":{"estado":"BLOQUEADO"},"bad":"LIBRE"},
			"resumen":{"VENDIDO":1,"BLOQUEADO":1},"totalAsientos":2}`))
	})

	states, err := gw.QueryAll(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, map[Position]SeatState{
		{Row: 1, Column: 1}: StateSold,
		{Row: 1, Column: 2}: StateLocked,
	}, states)
}

func TestProxySummaryAndHealth(t *testing.T) {
	gw := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/proxy/asientos/resumen/5":
			_, _ = w.Write([]byte(`{"resumen":{"VENDIDO":3,"OCUPADO":1,"BLOQUEADO":2,"???":9}}`))
		case "/api/proxy/health":
			_, _ = w.Write([]byte(`{"status":"UP"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	counts, err := gw.Summary(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, map[SeatState]int{StateSold: 4, StateLocked: 2}, counts)

	assert.NoError(t, gw.Health(context.Background()))
}

func TestProxyUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	gw := NewProxyGateway(config.ProxyConfig{BaseURL: srv.URL, Timeout: 100 * time.Millisecond})

	_, err := gw.QueryAll(context.Background(), 1)
	assert.True(t, apperrors.Is(err, apperrors.KindServiceUnavailable))
	assert.Error(t, gw.Health(context.Background()))
}

func TestRedisGatewayQueryOne(t *testing.T) {
	db, mock := redismock.NewClientMock()
	gw := NewRedisGateway(db)
	ctx := context.Background()

	mock.ExpectHGet("evento:7:asientos", "3:4").SetVal(`{"estado":"VENDIDO"}`)
	state, err := gw.QueryOne(ctx, 7, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, StateSold, state)

	// Missing from the hash falls back to the per-seat key, then to free
	mock.ExpectHGet("evento:7:asientos", "1:1").RedisNil()
	mock.ExpectGet("evento:7:asiento:1:1").RedisNil()
	state, err = gw.QueryOne(ctx, 7, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, StateFree, state)

	mock.ExpectHGet("evento:7:asientos", "1:2").RedisNil()
	mock.ExpectGet("evento:7:asiento:1:2").SetVal("BLOQUEADO")
	state, err = gw.QueryOne(ctx, 7, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisGatewaySummary(t *testing.T) {
	db, mock := redismock.NewClientMock()
	gw := NewRedisGateway(db)

	mock.ExpectHGetAll("evento:7:asientos").SetVal(map[string]string{
		"1:1": "VENDIDO",
		"1:2": "BLOQUEADO",
		"2:2": `{"estado":"OCUPADO"}`,
	})

	counts, err := gw.Summary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[SeatState]int{StateSold: 2, StateLocked: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisGatewayErrorIsUnavailable(t *testing.T) {
	db, mock := redismock.NewClientMock()
	gw := NewRedisGateway(db)

	mock.ExpectHGetAll("evento:7:asientos").SetErr(errors.New("connection refused"))

	_, err := gw.QueryAll(context.Background(), 7)
	assert.True(t, apperrors.Is(err, apperrors.KindServiceUnavailable))
}
