// Package store provides storage backends for HallBook.
//
// This file implements an SQLite-backed busy interval provider.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/HallBook/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteBusyProvider reads and records busy intervals in an SQLite database.
type SQLiteBusyProvider struct {
	db *sql.DB
}

// Compile-time check that SQLiteBusyProvider implements BusyRecorder.
var _ BusyRecorder = (*SQLiteBusyProvider)(nil)

// NewSQLiteBusyProvider opens the SQLite database named by the DSN option.
// The DSN should be a file path; missing directories are created.
func NewSQLiteBusyProvider(opts ...Option) (*SQLiteBusyProvider, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteBusyProvider invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteBusyProvider DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteBusyProvider{db: db}, nil
}

// FetchBusy returns the intervals of resourceID that overlap the browsable
// months of asOf.
func (p *SQLiteBusyProvider) FetchBusy(ctx context.Context, resourceID string, asOf time.Time) ([]models.BusyInterval, error) {
	from, to := fetchHorizon(asOf)
	rows, err := p.db.QueryContext(ctx,
		`SELECT start_unix, end_unix FROM busy_intervals
		 WHERE resource_id = ? AND end_unix > ? AND start_unix < ?
		 ORDER BY start_unix`,
		resourceID, from.Unix(), to.Unix())
	if err != nil {
		slog.Error("SQLiteBusyProvider FetchBusy query failed", "error", err, "resourceID", resourceID)
		return nil, fmt.Errorf("failed to query busy intervals for %s: %w", resourceID, err)
	}
	busy, err := scanBusyIntervals(rows)
	if err != nil {
		slog.Error("SQLiteBusyProvider FetchBusy scan failed", "error", err, "resourceID", resourceID)
		return nil, err
	}
	slog.Debug("SQLiteBusyProvider FetchBusy succeeded", "resourceID", resourceID, "count", len(busy))
	return busy, nil
}

// AddBusyInterval records a reservation for resourceID.
func (p *SQLiteBusyProvider) AddBusyInterval(ctx context.Context, resourceID string, interval models.BusyInterval) error {
	if !interval.Valid() {
		return fmt.Errorf("invalid busy interval %v..%v", interval.Start, interval.End)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO busy_intervals (resource_id, start_unix, end_unix) VALUES (?, ?, ?)`,
		resourceID, interval.Start.Unix(), interval.End.Unix())
	if err != nil {
		slog.Error("SQLiteBusyProvider AddBusyInterval failed", "error", err, "resourceID", resourceID)
		return fmt.Errorf("failed to insert busy interval for %s: %w", resourceID, err)
	}
	slog.Debug("SQLiteBusyProvider AddBusyInterval succeeded", "resourceID", resourceID, "start", interval.Start, "end", interval.End)
	return nil
}

// Close closes the SQLite database connection.
func (p *SQLiteBusyProvider) Close() error {
	slog.Debug("Closing SQLite database connection")
	return p.db.Close()
}
