// Package store provides storage backends for HallBook.
//
// This file implements a PostgreSQL-backed busy interval provider.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/HallBook/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresBusyProvider reads and records busy intervals in PostgreSQL.
type PostgresBusyProvider struct {
	db *sql.DB
}

// Compile-time check that PostgresBusyProvider implements BusyRecorder.
var _ BusyRecorder = (*PostgresBusyProvider)(nil)

// NewPostgresBusyProvider connects to PostgreSQL and applies migrations.
func NewPostgresBusyProvider(opts ...Option) (*PostgresBusyProvider, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresBusyProvider.New: creating provider", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresBusyProvider DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresBusyProvider{db: db}, nil
}

// FetchBusy returns the intervals of resourceID that overlap the browsable
// months of asOf.
func (p *PostgresBusyProvider) FetchBusy(ctx context.Context, resourceID string, asOf time.Time) ([]models.BusyInterval, error) {
	from, to := fetchHorizon(asOf)
	rows, err := p.db.QueryContext(ctx,
		`SELECT start_unix, end_unix FROM busy_intervals
		 WHERE resource_id = $1 AND end_unix > $2 AND start_unix < $3
		 ORDER BY start_unix`,
		resourceID, from.Unix(), to.Unix())
	if err != nil {
		slog.Error("PostgresBusyProvider FetchBusy query failed", "error", err, "resourceID", resourceID)
		return nil, fmt.Errorf("failed to query busy intervals for %s: %w", resourceID, err)
	}
	busy, err := scanBusyIntervals(rows)
	if err != nil {
		slog.Error("PostgresBusyProvider FetchBusy scan failed", "error", err, "resourceID", resourceID)
		return nil, err
	}
	slog.Debug("PostgresBusyProvider FetchBusy succeeded", "resourceID", resourceID, "count", len(busy))
	return busy, nil
}

// AddBusyInterval records a reservation for resourceID.
func (p *PostgresBusyProvider) AddBusyInterval(ctx context.Context, resourceID string, interval models.BusyInterval) error {
	if !interval.Valid() {
		return fmt.Errorf("invalid busy interval %v..%v", interval.Start, interval.End)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO busy_intervals (resource_id, start_unix, end_unix) VALUES ($1, $2, $3)`,
		resourceID, interval.Start.Unix(), interval.End.Unix())
	if err != nil {
		slog.Error("PostgresBusyProvider AddBusyInterval failed", "error", err, "resourceID", resourceID)
		return fmt.Errorf("failed to insert busy interval for %s: %w", resourceID, err)
	}
	slog.Debug("PostgresBusyProvider AddBusyInterval succeeded", "resourceID", resourceID)
	return nil
}

// Close closes the PostgreSQL database connection.
func (p *PostgresBusyProvider) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return p.db.Close()
}
