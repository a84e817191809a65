// Package postgres provides a Postgres-backed implementation of the flow
// store contract, for deployments that want flows in a shared database
// rather than on local disk.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/deepnoodle-ai/browserflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS flows (
	name TEXT PRIMARY KEY,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// FlowStore persists flow documents in a Postgres flows table. Saving an
// existing name overwrites the previous document and bumps its creation
// time, matching the file store's last-write-wins semantics.
type FlowStore struct {
	db *sql.DB
}

// New wraps an existing database handle.
func New(db *sql.DB) *FlowStore {
	return &FlowStore{db: db}
}

// Open connects to Postgres with the given DSN and returns a flow store.
func Open(dsn string) (*FlowStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &FlowStore{db: db}, nil
}

// Initialize creates the flows table if it does not exist.
func (s *FlowStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create flows table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *FlowStore) Close() error {
	return s.db.Close()
}

// SaveFlow upserts the flow document under the given name. The statement is
// atomic, so a failed save never leaves a partially-written document.
func (s *FlowStore) SaveFlow(ctx context.Context, name string, flow *browserflow.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (name, document, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET document = $2, created_at = now()`,
		name, data)
	if err != nil {
		return fmt.Errorf("failed to save flow %q: %w", name, err)
	}
	return nil
}

// LoadFlow loads the flow document stored under the given name.
func (s *FlowStore) LoadFlow(ctx context.Context, name string) (*browserflow.Flow, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM flows WHERE name = $1`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, browserflow.NewFlowError(browserflow.ErrorTypeNotFound,
			fmt.Sprintf("flow %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %q: %w", name, err)
	}

	var flow browserflow.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, &browserflow.FlowError{
			Type:    browserflow.ErrorTypeMalformedDocument,
			Cause:   fmt.Sprintf("flow %q is not valid JSON", name),
			Wrapped: err,
		}
	}
	return &flow, nil
}

// ListFlows returns summaries of all stored flows, newest-created first.
func (s *FlowStore) ListFlows(ctx context.Context) ([]*browserflow.FlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, document, octet_length(document::text), created_at
		FROM flows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var summaries []*browserflow.FlowSummary
	for rows.Next() {
		var (
			summary browserflow.FlowSummary
			data    []byte
		)
		if err := rows.Scan(&summary.Name, &data, &summary.SizeBytes, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		summary.StepCount = browserflow.StepCountUnknown
		var flow browserflow.Flow
		if err := json.Unmarshal(data, &flow); err == nil {
			summary.StepCount = len(flow.History)
		}
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flow rows: %w", err)
	}
	return summaries, nil
}

// DeleteFlow removes the flow document stored under the given name.
func (s *FlowStore) DeleteFlow(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete flow %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return browserflow.NewFlowError(browserflow.ErrorTypeNotFound,
			fmt.Sprintf("flow %q not found", name))
	}
	return nil
}
