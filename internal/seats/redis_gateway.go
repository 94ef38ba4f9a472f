package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatflow/internal/shared/apperrors"
	"seatflow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// redisGateway reads the inventory's shared seat hashes directly, bypassing the proxy.
//
//	evento:{id}:asientos          hash, field "{row}:{column}"
//	evento:{id}:asiento:{r}:{c}   string, legacy per-seat key
//
// Values are either a bare label or a JSON object with an "estado" field.
// A seat missing from both is free.
type redisGateway struct {
	redis redis.UniversalClient
	log   *logger.Logger
}

func NewRedisGateway(client redis.UniversalClient) Gateway {
	return &redisGateway{redis: client, log: logger.GetDefault()}
}

func seatHashKey(externalEventID int64) string {
	return fmt.Sprintf("evento:%d:asientos", externalEventID)
}

func seatKey(externalEventID int64, row, column int) string {
	return fmt.Sprintf("evento:%d:asiento:%d:%d", externalEventID, row, column)
}

func (g *redisGateway) QueryOne(ctx context.Context, externalEventID int64, row, column int) (state SeatState, err error) {
	start := time.Now()
	defer func() { g.log.LogExternalCall(ctx, "seat-redis", "seat-state", time.Since(start), err) }()

	raw, err := g.redis.HGet(ctx, seatHashKey(externalEventID), Position{Row: row, Column: column}.Key()).Result()
	if errors.Is(err, redis.Nil) {
		raw, err = g.redis.Get(ctx, seatKey(externalEventID, row, column)).Result()
	}
	if errors.Is(err, redis.Nil) {
		return StateFree, nil
	}
	if err != nil {
		return "", apperrors.Unavailable(err, "seat redis read failed")
	}

	parsed, ok := parseStoredState(raw)
	if !ok {
		return "", fmt.Errorf("%w: unrecognised state %q", ErrSeatUnknown, raw)
	}
	return parsed, nil
}

func (g *redisGateway) QueryAll(ctx context.Context, externalEventID int64) (states map[Position]SeatState, err error) {
	start := time.Now()
	defer func() { g.log.LogExternalCall(ctx, "seat-redis", "seat-map", time.Since(start), err) }()

	entries, err := g.redis.HGetAll(ctx, seatHashKey(externalEventID)).Result()
	if err != nil {
		return nil, apperrors.Unavailable(err, "seat redis read failed")
	}

	states = make(map[Position]SeatState, len(entries))
	for field, raw := range entries {
		pos, err := ParsePosition(field)
		if err != nil {
			continue
		}
		if state, ok := parseStoredState(raw); ok {
			states[pos] = state
		}
	}
	return states, nil
}

// Summary counts only the seats present in the hash; callers derive free seats from the grid
func (g *redisGateway) Summary(ctx context.Context, externalEventID int64) (map[SeatState]int, error) {
	states, err := g.QueryAll(ctx, externalEventID)
	if err != nil {
		return nil, err
	}
	counts := map[SeatState]int{}
	for _, state := range states {
		counts[state]++
	}
	return counts, nil
}

func (g *redisGateway) Health(ctx context.Context) error {
	if err := g.redis.Ping(ctx).Err(); err != nil {
		return apperrors.Unavailable(err, "seat redis unreachable")
	}
	return nil
}
