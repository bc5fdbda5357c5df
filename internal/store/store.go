// Package store persists translation requests, the translation memory and
// CSV job checkpoints in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/metaltran/internal"
)

type Store struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, sq: sq.StatementBuilder}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_requests (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		family TEXT NOT NULL,
		model_path TEXT NOT NULL,
		max_tokens INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	-- one row per engine call of a request
	CREATE TABLE IF NOT EXISTS batch_outputs (
		request_id TEXT NOT NULL,
		batch_idx INTEGER NOT NULL,
		output_text TEXT NOT NULL,
		score REAL,
		PRIMARY KEY (request_id, batch_idx),
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS translation_results (
		request_id TEXT PRIMARY KEY,
		translated_text TEXT NOT NULL,
		batches INTEGER NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		family TEXT NOT NULL,
		model TEXT NOT NULL,
		final_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(source_text, source_lang, target_lang, family, model)
	);

	CREATE TABLE IF NOT EXISTS csv_checkpoints (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		family TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS csv_checkpoint_cells (
		checkpoint_id TEXT NOT NULL,
		row_idx INTEGER NOT NULL,
		col_idx INTEGER NOT NULL,
		translated_text TEXT NOT NULL,
		PRIMARY KEY (checkpoint_id, row_idx, col_idx),
		FOREIGN KEY (checkpoint_id) REFERENCES csv_checkpoints(id)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_lang, target_lang, family, model);
	CREATE INDEX IF NOT EXISTS idx_batch_request ON batch_outputs(request_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoint_cells ON csv_checkpoint_cells(checkpoint_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *Store) SaveRequest(ctx context.Context, req internal.TranslationRequest) error {
	_, err := s.exec(ctx, s.sq.Insert("translation_requests").
		Columns("id", "source_text", "source_lang", "target_lang", "family", "model_path", "max_tokens", "created_at").
		Values(req.ID, req.SourceText, req.SourceLang, req.TargetLang, req.Family, req.ModelPath, req.MaxTokens, req.Timestamp))
	return err
}

// SaveBatchOutputs records the assembled text of every batch of a request.
func (s *Store) SaveBatchOutputs(ctx context.Context, requestID string, outputs []string, scores []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, out := range outputs {
		var score any
		if i < len(scores) {
			score = scores[i]
		}
		query, args, err := s.sq.Insert("batch_outputs").
			Columns("request_id", "batch_idx", "output_text", "score").
			Values(requestID, i, out, score).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetBatchOutputs returns the per-batch texts of a request in batch order.
func (s *Store) GetBatchOutputs(ctx context.Context, requestID string) ([]string, error) {
	rows, err := s.query(ctx, s.sq.Select("output_text").
		From("batch_outputs").
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("batch_idx"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outputs []string
	for rows.Next() {
		var out string
		if err := rows.Scan(&out); err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, rows.Err()
}

// SaveResult records the outcome of a request. errMsg is empty on success.
func (s *Store) SaveResult(ctx context.Context, requestID, translatedText string, batches int, latency time.Duration, errMsg string) error {
	_, err := s.exec(ctx, s.sq.Insert("translation_results").
		Columns("request_id", "translated_text", "batches", "latency_ms", "error", "created_at").
		Values(requestID, translatedText, batches, latency.Milliseconds(), errMsg, time.Now()))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
