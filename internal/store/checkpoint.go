package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	CheckpointRunning   = "running"
	CheckpointCompleted = "completed"
)

// CSVCheckpoint is the progress record of one CSV translation job.
type CSVCheckpoint struct {
	ID         string
	InputFile  string
	OutputFile string
	SourceLang string
	TargetLang string
	Family     string
	Model      string
	Status     string
	CreatedAt  time.Time
}

// CellKey addresses a CSV cell in the map returned by GetCSVCells.
func CellKey(rowIdx, colIdx int) string {
	return fmt.Sprintf("%d:%d", rowIdx, colIdx)
}

// CreateCSVCheckpoint stores cp as a running job and returns its new ID.
func (s *Store) CreateCSVCheckpoint(ctx context.Context, cp CSVCheckpoint) (string, error) {
	id := "cp_" + uuid.NewString()
	now := time.Now()
	_, err := s.exec(ctx, s.sq.Insert("csv_checkpoints").
		Columns("id", "input_file", "output_file", "source_lang", "target_lang", "family", "model", "status", "created_at", "updated_at").
		Values(id, cp.InputFile, cp.OutputFile, cp.SourceLang, cp.TargetLang, cp.Family, cp.Model, CheckpointRunning, now, now))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetCSVCheckpoint(ctx context.Context, checkpointID string) (*CSVCheckpoint, error) {
	row, err := s.queryRow(ctx, s.sq.Select("id", "input_file", "output_file", "source_lang", "target_lang", "family", "model", "status", "created_at").
		From("csv_checkpoints").
		Where(sq.Eq{"id": checkpointID}))
	if err != nil {
		return nil, err
	}

	var cp CSVCheckpoint
	err = row.Scan(&cp.ID, &cp.InputFile, &cp.OutputFile, &cp.SourceLang, &cp.TargetLang, &cp.Family, &cp.Model, &cp.Status, &cp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// SaveCSVCell persists the translated text for a single CSV cell.
func (s *Store) SaveCSVCell(ctx context.Context, checkpointID string, rowIdx, colIdx int, translatedText string) error {
	_, err := s.exec(ctx, s.sq.Insert("csv_checkpoint_cells").
		Options("OR REPLACE").
		Columns("checkpoint_id", "row_idx", "col_idx", "translated_text").
		Values(checkpointID, rowIdx, colIdx, translatedText))
	return err
}

// GetCSVCells returns the translated cells of a checkpoint keyed by CellKey.
func (s *Store) GetCSVCells(ctx context.Context, checkpointID string) (map[string]string, error) {
	rows, err := s.query(ctx, s.sq.Select("row_idx", "col_idx", "translated_text").
		From("csv_checkpoint_cells").
		Where(sq.Eq{"checkpoint_id": checkpointID}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make(map[string]string)
	for rows.Next() {
		var (
			rowIdx, colIdx int
			text           string
		)
		if err := rows.Scan(&rowIdx, &colIdx, &text); err != nil {
			return nil, err
		}
		cells[CellKey(rowIdx, colIdx)] = text
	}
	return cells, rows.Err()
}

func (s *Store) CompleteCSVCheckpoint(ctx context.Context, checkpointID string) error {
	_, err := s.exec(ctx, s.sq.Update("csv_checkpoints").
		Set("status", CheckpointCompleted).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": checkpointID}))
	return err
}
