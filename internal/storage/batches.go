package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const batchColumns = "id, filename, format, file_size, row_count, skipped_rows, uploaded_at"

// SaveBatch stores a batch and its transactions in one database transaction.
func (s *SQLiteStorage) SaveBatch(ctx context.Context, batch *model.Batch, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	if batch.UploadedAt.IsZero() {
		batch.UploadedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO file_uploads ("+batchColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			batch.ID, batch.Filename, batch.Format, batch.SizeBytes, batch.RowCount, batch.SkippedRows, batch.UploadedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", translateError(err))
		}

		return s.insertTransactions(ctx, tx, batch.ID, transactions)
	})
}

// ListBatches returns batches, most recent upload first.
func (s *SQLiteStorage) ListBatches(ctx context.Context) ([]model.Batch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+batchColumns+" FROM file_uploads ORDER BY uploaded_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// GetBatch returns one batch.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+batchColumns+" FROM file_uploads WHERE id = ?", id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %q: %w", id, common.ErrNotFound)
	}
	return batch, err
}

// DeleteBatch deletes a batch; its transactions go with it.
func (s *SQLiteStorage) DeleteBatch(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM file_uploads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return expectAffected(result, "batch", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*model.Batch, error) {
	var b model.Batch
	err := row.Scan(&b.ID, &b.Filename, &b.Format, &b.SizeBytes, &b.RowCount, &b.SkippedRows, &b.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return &b, nil
}
