package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"fastx-gateway/internal/audit"
)

// schema creates the archive table. Parameters, summaries and warnings are
// stored as JSONB so the table does not change when operations gain fields.
const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id                TEXT PRIMARY KEY,
	created_at        TIMESTAMPTZ NOT NULL,
	operation         TEXT NOT NULL,
	endpoint          TEXT NOT NULL DEFAULT '',
	parameters        JSONB NOT NULL DEFAULT '{}',
	success           BOOLEAN NOT NULL,
	execution_time_ms DOUBLE PRECISION NOT NULL,
	result_summary    JSONB NOT NULL DEFAULT '{}',
	error_message     TEXT NOT NULL DEFAULT '',
	warnings          JSONB NOT NULL DEFAULT '[]',
	request_id        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_records_operation_idx ON audit_records (operation, created_at DESC);
`

// recordRow is an audit record flattened for insertion.
type recordRow struct {
	ID              string    `db:"id"`
	CreatedAt       time.Time `db:"created_at"`
	Operation       string    `db:"operation"`
	Endpoint        string    `db:"endpoint"`
	Parameters      []byte    `db:"parameters"`
	Success         bool      `db:"success"`
	ExecutionTimeMS float64   `db:"execution_time_ms"`
	ResultSummary   []byte    `db:"result_summary"`
	ErrorMessage    string    `db:"error_message"`
	Warnings        []byte    `db:"warnings"`
	RequestID       string    `db:"request_id"`
}

func newRecordRow(rec audit.Record) (recordRow, error) {
	params, err := jsonOr(rec.Parameters, "{}")
	if err != nil {
		return recordRow{}, fmt.Errorf("encoding parameters: %w", err)
	}
	summary, err := jsonOr(rec.ResultSummary, "{}")
	if err != nil {
		return recordRow{}, fmt.Errorf("encoding result summary: %w", err)
	}
	warnings, err := jsonOr(rec.Warnings, "[]")
	if err != nil {
		return recordRow{}, fmt.Errorf("encoding warnings: %w", err)
	}
	return recordRow{
		ID:              rec.ID,
		CreatedAt:       rec.Timestamp,
		Operation:       rec.Operation,
		Endpoint:        rec.Endpoint,
		Parameters:      params,
		Success:         rec.Success,
		ExecutionTimeMS: rec.ExecutionTimeMS,
		ResultSummary:   summary,
		ErrorMessage:    truncateForDB(rec.ErrorMessage, 65535),
		Warnings:        warnings,
		RequestID:       rec.RequestID,
	}, nil
}

func jsonOr[T any](v T, empty string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

func truncateForDB(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
