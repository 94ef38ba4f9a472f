package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store holds at most one session per user and enforces its TTL
type Store interface {
	// Get returns nil without error when the user has no session
	Get(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error)
	Save(ctx context.Context, session *PurchaseSession, ttl time.Duration) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, userID uuid.UUID) (*PurchaseSession, error) {
	raw, err := s.client.Get(ctx, constants.BuildPurchaseSessionKey(userID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.Unavailable(err, "session store unavailable")
	}

	var session PurchaseSession
	if err := json.Unmarshal(raw, &session); err != nil {
		// An unreadable session is treated as absent
		return nil, nil
	}
	return &session, nil
}

func (s *redisStore) Save(ctx context.Context, session *PurchaseSession, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, session.UserID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.Internal(err, "failed to encode session")
	}

	if err := s.client.Set(ctx, constants.BuildPurchaseSessionKey(session.UserID.String()), data, ttl).Err(); err != nil {
		return apperrors.Unavailable(err, "session store unavailable")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, constants.BuildPurchaseSessionKey(userID.String())).Err(); err != nil {
		return apperrors.Unavailable(err, "session store unavailable")
	}
	return nil
}
