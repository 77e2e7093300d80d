package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/postgres"
)

// DocumentStatus is the outcome of normalizing one text.
type DocumentStatus string

const (
	StatusNormalized DocumentStatus = "normalized"
	StatusFailed     DocumentStatus = "failed"
	StatusSkipped    DocumentStatus = "skipped"
)

// DocumentRecord is one row of document bookkeeping.
type DocumentRecord struct {
	ID        string
	Status    DocumentStatus
	Terms     int
	Tokens    int
	Error     string
	UpdatedAt time.Time
}

// StatusRecorder stores per-document outcomes. Record is called concurrently
// from the normalization workers.
type StatusRecorder interface {
	Record(ctx context.Context, rec DocumentRecord) error
}

const documentStatusSchema = `
CREATE TABLE IF NOT EXISTS document_status (
    doc_id      TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    terms       INTEGER NOT NULL DEFAULT 0,
    tokens      INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    updated_at  TIMESTAMPTZ NOT NULL
)`

// PostgresRecorder upserts DocumentRecords into the document_status table.
type PostgresRecorder struct {
	db *postgres.Client
}

// NewPostgresRecorder creates the table if needed and returns the recorder.
func NewPostgresRecorder(ctx context.Context, db *postgres.Client) (*PostgresRecorder, error) {
	if _, err := db.DB.ExecContext(ctx, documentStatusSchema); err != nil {
		return nil, fmt.Errorf("creating document_status table: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, rec DocumentRecord) error {
	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO document_status (doc_id, status, terms, tokens, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doc_id) DO UPDATE SET
			status = EXCLUDED.status,
			terms = EXCLUDED.terms,
			tokens = EXCLUDED.tokens,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, string(rec.Status), rec.Terms, rec.Tokens, rec.Error, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting status of %s: %w", rec.ID, err)
	}
	return nil
}

// Clear deletes every row. The reset command calls it alongside wiping the
// results directory.
func (r *PostgresRecorder) Clear(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM document_status`)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clearing document_status: %w", err)
	}
	return deleted, nil
}
