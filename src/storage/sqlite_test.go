package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
)

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{
		DBType:        "sqlite",
		DBPath:        filepath.Join(t.TempDir(), "history.db"),
		RetentionDays: 7,
	}}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func f64(v float64) *float64 { return &v }

// -----------------------------------------------------------------------------

func TestSQLiteSamplesNewestFirst(t *testing.T) {
	db := newTestSQLite(t)
	now := time.Now().UnixMilli()

	require.NoError(t, db.SaveStateSample(models.MStateSample{
		SessionID: "s1", StateTime: 1000, Status: "OK", Mid: f64(101.5), Link: "poll", RecordedAt: now - 2000,
	}))
	require.NoError(t, db.SaveStateSample(models.MStateSample{
		SessionID: "s1", StateTime: 2000, Status: "WARN", VolPct: f64(0.8), Stale: true, Link: "live", RecordedAt: now - 1000,
	}))

	samples, err := db.RecentSamples(10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, "WARN", samples[0].Status)
	assert.True(t, samples[0].Stale)
	assert.Nil(t, samples[0].Mid)
	require.NotNil(t, samples[0].VolPct)
	assert.Equal(t, 0.8, *samples[0].VolPct)

	assert.Equal(t, int64(1000), samples[1].StateTime)
	require.NotNil(t, samples[1].Mid)
	assert.Equal(t, 101.5, *samples[1].Mid)
	assert.Nil(t, samples[1].VolPct)

	samples, err = db.RecentSamples(1)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestSQLiteEmptyHistory(t *testing.T) {
	db := newTestSQLite(t)

	samples, err := db.RecentSamples(5)
	require.NoError(t, err)
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}

func TestSQLiteCleanupRespectsRetention(t *testing.T) {
	db := newTestSQLite(t)
	now := time.Now()
	old := now.AddDate(0, 0, -8).UnixMilli()

	require.NoError(t, db.SaveStateSample(models.MStateSample{SessionID: "s", StateTime: 1, RecordedAt: old}))
	require.NoError(t, db.SaveStateSample(models.MStateSample{SessionID: "s", StateTime: 2, RecordedAt: now.UnixMilli()}))
	require.NoError(t, db.SaveLinkEvent(models.MLinkEvent{ID: "old", SessionID: "s", Link: "live", RecordedAt: old}))
	require.NoError(t, db.SaveLinkEvent(models.MLinkEvent{ID: "new", SessionID: "s", Link: "poll", RecordedAt: now.UnixMilli()}))

	require.NoError(t, db.CleanupOldData())

	samples, err := db.RecentSamples(10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(2), samples[0].StateTime)

	var links int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM link_events").Scan(&links))
	assert.Equal(t, 1, links)
}

func TestSQLiteInitializeIsRepeatable(t *testing.T) {
	db := newTestSQLite(t)
	require.NoError(t, db.SaveStateSample(models.MStateSample{SessionID: "s", StateTime: 1, RecordedAt: time.Now().UnixMilli()}))

	// Existing rows survive a second schema pass
	require.NoError(t, db.createTables())

	samples, err := db.RecentSamples(10)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestNewDatabaseSelectsBackend(t *testing.T) {
	cfg := &models.MConfig{}
	db, err := NewDatabase(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, db)

	cfg.Storage.DBType = "mongo"
	_, err = NewDatabase(cfg, logger.NewNop())
	assert.Error(t, err)

	cfg.Storage.DBType = "sqlite"
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "h.db")
	db, err = NewDatabase(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &AsyncSQLiteDB{}, db)
	db.Close()
}
