package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNoDatabase is returned by repository methods when no pool is configured.
var ErrNoDatabase = errors.New("database not initialized")

// Repository is a thin wrapper around *sql.DB intended for dependency injection.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Available reports whether the repository has a live pool.
func (r *Repository) Available() bool { return r != nil && r.DB != nil }

// OperationRecord is one row of claim_operations.
type OperationRecord struct {
	ID          string          `json:"id"`
	Operation   string          `json:"operacion"`
	Transaccion string          `json:"transaccion"`
	NumSini     string          `json:"num_sini,omitempty"`
	Outcome     string          `json:"resultado"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"datos,omitempty"`
	StartedAt   time.Time       `json:"inicio"`
	FinishedAt  time.Time       `json:"fin"`
}

// InsertOperation stores one finished gateway operation.
func (r *Repository) InsertOperation(ctx context.Context, rec OperationRecord) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	var result any
	if len(rec.Result) > 0 {
		result = []byte(rec.Result)
	}
	query := `
        INSERT INTO claim_operations (id, operation, transaccion, num_sini, outcome, error, result, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.DB.ExecContext(ctx, query, rec.ID, rec.Operation, rec.Transaccion, rec.NumSini, rec.Outcome, rec.Error, result, rec.StartedAt, rec.FinishedAt); err != nil {
		return fmt.Errorf("failed to insert claim operation: %w", err)
	}
	log.Printf("[DB] Inserted claim operation %s: %s transaccion=%s outcome=%s", rec.ID, rec.Operation, rec.Transaccion, rec.Outcome)
	return nil
}

// ListOperations returns the most recent operations, newest first. An empty
// transaccion lists across all transactions.
func (r *Repository) ListOperations(ctx context.Context, transaccion string, limit int) ([]OperationRecord, error) {
	if !r.Available() {
		return nil, ErrNoDatabase
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, operation, transaccion, num_sini, outcome, error, COALESCE(result::text, ''), started_at, finished_at
        FROM claim_operations
        WHERE ($1::text = '' OR transaccion = $1::text)
        ORDER BY finished_at DESC
        LIMIT $2`, transaccion, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim operations: %w", err)
	}
	defer rows.Close()

	list := []OperationRecord{}
	for rows.Next() {
		var rec OperationRecord
		var result string
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.Transaccion, &rec.NumSini, &rec.Outcome, &rec.Error, &result, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim operation: %w", err)
		}
		if result != "" {
			rec.Result = json.RawMessage(result)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim operations: %w", err)
	}
	return list, nil
}
