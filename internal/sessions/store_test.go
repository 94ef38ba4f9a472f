package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"seatflow/internal/seats"
	"seatflow/internal/shared/apperrors"
	"seatflow/internal/shared/constants"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *PurchaseSession {
	now := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	return &PurchaseSession{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		EventID:         uuid.New(),
		ExternalEventID: 3,
		UnitPrice:       50,
		Seats:           []seats.Position{{Row: 1, Column: 2}},
		Attendees:       []Attendee{},
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(DefaultTTL),
	}
}

func TestRedisStoreSaveAndGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	ctx := context.Background()

	session := sampleSession()
	key := constants.BuildPurchaseSessionKey(session.UserID.String())
	data, err := json.Marshal(session)
	require.NoError(t, err)

	mock.ExpectSet(key, data, 10*time.Minute).SetVal("OK")
	require.NoError(t, store.Save(ctx, session, 10*time.Minute))

	mock.ExpectGet(key).SetVal(string(data))
	got, err := store.Get(ctx, session.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Seats, got.Seats)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreGetMissingOrCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	userID := uuid.New()
	key := constants.BuildPurchaseSessionKey(userID.String())

	mock.ExpectGet(key).RedisNil()
	got, err := store.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectGet(key).SetVal("{not json")
	got, err = store.Get(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSaveWithElapsedTTLDeletes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	session := sampleSession()

	mock.ExpectDel(constants.BuildPurchaseSessionKey(session.UserID.String())).SetVal(1)
	require.NoError(t, store.Save(context.Background(), session, 0))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreUnavailable(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)
	userID := uuid.New()

	mock.ExpectGet(constants.BuildPurchaseSessionKey(userID.String())).SetErr(errors.New("connection refused"))
	_, err := store.Get(context.Background(), userID)
	assert.True(t, apperrors.Is(err, apperrors.KindServiceUnavailable))
}
