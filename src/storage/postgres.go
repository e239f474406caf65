package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable so several dashboards can share a database
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			state_ts_ms BIGINT NOT NULL,
			status TEXT,
			mid DOUBLE PRECISION,
			vol_pct DOUBLE PRECISION,
			stale BOOLEAN NOT NULL,
			link TEXT,
			recorded_at BIGINT NOT NULL
		);
	`, d.table("state_samples"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create state_samples: %w", err)
	}

	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS state_samples_recorded_idx ON %s (recorded_at)`, d.table("state_samples"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to index state_samples: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			link TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		);
	`, d.table("link_events"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create link_events: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveStateSample(s models.MStateSample) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, state_ts_ms, status, mid, vol_pct, stale, link, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.table("state_samples"))
	_, err := d.DB.Exec(query, s.SessionID, s.StateTime, s.Status, nullFloat(s.Mid), nullFloat(s.VolPct), s.Stale, s.Link, s.RecordedAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveLinkEvent(e models.MLinkEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, link, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, d.table("link_events"))
	_, err := d.DB.Exec(query, e.ID, e.SessionID, e.Link, e.RecordedAt)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentSamples(limit int) ([]models.MStateSample, error) {
	query := fmt.Sprintf(`
		SELECT session_id, state_ts_ms, status, mid, vol_pct, stale, link, recorded_at
		FROM %s
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`, d.table("state_samples"))
	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSamples(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config)

	d.Logger.Debug("Cleaning up data older than %d days (recorded_at < %d)...", retentionDays(d.Config), cutoff)

	for _, name := range []string{"state_samples", "link_events"} {
		if _, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE recorded_at < $1", d.table(name)), cutoff); err != nil {
			d.Logger.Error("Cleanup %s error: %v", name, err)
			return err
		}
	}

	d.Logger.Debug("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
