package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/pkg/logger"
)

func setupSweepTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  expires_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM ledger_entries`).Error)
	return db
}

func insertSweepEntry(t *testing.T, db *gorm.DB, status string, expiresAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Exec(
		`INSERT INTO ledger_entries (id, transaction_id, status, expires_at) VALUES (?, ?, ?, ?)`,
		id, "TXN-"+id, status, expiresAt,
	).Error)
	return id
}

func TestExpiryJobEvictsOnlyPastDeadline(t *testing.T) {
	db := setupSweepTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expiredPending := insertSweepEntry(t, db, "pending", now.Add(-time.Hour))
	expiredCompleted := insertSweepEntry(t, db, "completed", now.Add(-time.Minute))
	liveEntry := insertSweepEntry(t, db, "pending", now.Add(time.Hour))

	jobIface, err := NewExpiryJob(ExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "sweep-test"}),
		DB:     db,
	})
	require.NoError(t, err)
	job := jobIface.(*expiryJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var remaining []string
	require.NoError(t, db.Raw(`SELECT id FROM ledger_entries`).Scan(&remaining).Error)
	assert.Equal(t, []string{liveEntry}, remaining)
	assert.NotContains(t, remaining, expiredPending)
	assert.NotContains(t, remaining, expiredCompleted)
}

func TestExpiryJobNoopWhenNothingExpired(t *testing.T) {
	db := setupSweepTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	insertSweepEntry(t, db, "pending", now.Add(time.Hour))

	jobIface, err := NewExpiryJob(ExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "sweep-test"}),
		DB:     db,
	})
	require.NoError(t, err)
	job := jobIface.(*expiryJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM ledger_entries`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNewExpiryJobRequiresDB(t *testing.T) {
	_, err := NewExpiryJob(ExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "sweep-test"}),
	})
	assert.Error(t, err)
}
