package events

import (
	"context"
	"os"
	"testing"
	"time"

	"seatflow/internal/shared/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getTestDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&Event{}))
	return db
}

func TestRepositoryUpsertAndDeactivate(t *testing.T) {
	db := getTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	externalID := time.Now().UnixNano()
	t.Cleanup(func() { db.Where("external_id = ?", externalID).Delete(&Event{}) })

	event := &Event{ExternalID: externalID, Title: "First", Rows: 10, Columns: 16, Price: 50, Status: StatusActive}
	created, err := repo.Upsert(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)

	update := &Event{ExternalID: externalID, Title: "Second", Rows: 5, Columns: 5, Price: 75, Status: StatusActive}
	created, err = repo.Upsert(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, event.ID, update.ID)

	stored, err := repo.GetByExternalID(ctx, externalID)
	require.NoError(t, err)
	assert.Equal(t, "Second", stored.Title)
	assert.Equal(t, 5, stored.Rows)

	require.NoError(t, repo.Deactivate(ctx, stored.ID, time.Now()))
	stored, err = repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, stored.Status)
	assert.NotNil(t, stored.DeactivatedAt)
}

func TestRepositoryGetByExternalIDNotFound(t *testing.T) {
	repo := NewRepository(getTestDB(t))

	_, err := repo.GetByExternalID(context.Background(), -1)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpsertLocksTheExistingRow(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=seatflow"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	var existing Event
	stmt := lockByExternalID(db, 42).First(&existing).Statement

	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
	assert.Contains(t, stmt.SQL.String(), "external_id = $1")
	assert.Contains(t, stmt.Vars, int64(42))
}
