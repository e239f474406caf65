package storage

import (
	"database/sql"
	"fmt"
	"time"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// The recorder is the only writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64 and bools, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS state_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			state_ts_ms INTEGER NOT NULL,
			status TEXT,
			mid REAL,
			vol_pct REAL,
			stale INTEGER NOT NULL,
			link TEXT,
			recorded_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create state_samples: %w", err)
	}

	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_state_samples_recorded ON state_samples (recorded_at)`); err != nil {
		return fmt.Errorf("failed to index state_samples: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS link_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			link TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create link_events: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveStateSample(s models.MStateSample) error {
	_, err := d.DB.Exec(`
		INSERT INTO state_samples (session_id, state_ts_ms, status, mid, vol_pct, stale, link, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SessionID, s.StateTime, s.Status, nullFloat(s.Mid), nullFloat(s.VolPct), s.Stale, s.Link, s.RecordedAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveLinkEvent(e models.MLinkEvent) error {
	_, err := d.DB.Exec(`
		INSERT INTO link_events (id, session_id, link, recorded_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.SessionID, e.Link, e.RecordedAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentSamples(limit int) ([]models.MStateSample, error) {
	rows, err := d.DB.Query(`
		SELECT session_id, state_ts_ms, status, mid, vol_pct, stale, link, recorded_at
		FROM state_samples
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSamples(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config)

	d.Logger.Debug("Cleaning up data older than %d days (recorded_at < %d)...", retentionDays(d.Config), cutoff)

	if _, err := d.DB.Exec("DELETE FROM state_samples WHERE recorded_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup state_samples error: %v", err)
		return err
	}
	if _, err := d.DB.Exec("DELETE FROM link_events WHERE recorded_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup link_events error: %v", err)
		return err
	}

	d.Logger.Debug("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Shared helpers
// -----------------------------------------------------------------------------

func retentionDays(cfg *models.MConfig) int {
	if cfg.Storage.RetentionDays > 0 {
		return cfg.Storage.RetentionDays
	}
	return utils.DefaultRetentionDays
}

func retentionCutoff(cfg *models.MConfig) int64 {
	return time.Now().UTC().AddDate(0, 0, -retentionDays(cfg)).UnixMilli()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func scanSamples(rows *sql.Rows) ([]models.MStateSample, error) {
	out := []models.MStateSample{}
	for rows.Next() {
		var (
			s           models.MStateSample
			mid, volPct sql.NullFloat64
			status      sql.NullString
			link        sql.NullString
		)
		if err := rows.Scan(&s.SessionID, &s.StateTime, &status, &mid, &volPct, &s.Stale, &link, &s.RecordedAt); err != nil {
			return nil, err
		}
		s.Status, s.Link = status.String, link.String
		s.Mid, s.VolPct = floatPtr(mid), floatPtr(volPct)
		out = append(out, s)
	}
	return out, rows.Err()
}
