package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/config"
)

// DB wraps a PostgreSQL connection pool that archives audit records.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return &DB{pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks database connectivity.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}

// EnsureSchema creates the archive table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating audit schema: %w", err)
	}
	return nil
}

// LogRecord inserts an audit record. Re-inserting the same ID is a no-op so
// a retried write that actually landed does not fail.
func (db *DB) LogRecord(ctx context.Context, rec audit.Record) error {
	row, err := newRecordRow(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_records (id, created_at, operation, endpoint, parameters,
			success, execution_time_ms, result_summary, error_message, warnings, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err = db.pool.Exec(ctx, query,
		row.ID, row.CreatedAt, row.Operation, row.Endpoint, row.Parameters,
		row.Success, row.ExecutionTimeMS, row.ResultSummary, row.ErrorMessage,
		row.Warnings, row.RequestID,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record %s: %w", rec.ID, err)
	}
	return nil
}
