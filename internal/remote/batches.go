package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// transactionRow is the stored form of a transaction; seq keeps source order.
type transactionRow struct {
	model.Transaction
	Seq int `json:"seq"`
}

// SaveBatch implements service.BatchStore. If the transactions cannot be
// inserted the batch row is deleted again.
func (s *SupabaseStore) SaveBatch(ctx context.Context, batch *model.Batch, transactions []model.Transaction) error {
	if batch == nil || batch.ID == "" || batch.Filename == "" {
		return fmt.Errorf("batch requires an id and filename")
	}
	if batch.UploadedAt.IsZero() {
		batch.UploadedAt = s.now()
	}

	err := s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableUploads).Insert(batch, false, "", "minimal", "").Execute()
		return data, err
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if len(transactions) == 0 {
		return nil
	}

	rows := make([]transactionRow, len(transactions))
	for i, txn := range transactions {
		txn.BatchID = batch.ID
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = batch.UploadedAt
		}
		rows[i] = transactionRow{Transaction: txn, Seq: i}
	}

	err = s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableTransactions).Insert(rows, false, "", "minimal", "").Execute()
		return data, err
	}, nil)
	if err != nil {
		if cleanupErr := s.DeleteBatch(context.WithoutCancel(ctx), batch.ID); cleanupErr != nil {
			slog.Error("Failed to remove partially saved batch",
				"batch_id", batch.ID,
				"error", cleanupErr)
		}
		return fmt.Errorf("failed to insert transactions: %w", err)
	}

	return nil
}

// ListBatches implements service.BatchStore.
func (s *SupabaseStore) ListBatches(ctx context.Context) ([]model.Batch, error) {
	var batches []model.Batch
	err := s.read(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableUploads).
			Select("*", "", false).
			Order("uploaded_at", descending()).
			Execute()
		return data, err
	}, &batches)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// GetBatch implements service.BatchStore.
func (s *SupabaseStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	var batches []model.Batch
	err := s.read(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableUploads).Select("*", "", false).Eq("id", id).Execute()
		return data, err
	}, &batches)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("batch %q: %w", id, common.ErrNotFound)
	}
	return &batches[0], nil
}

// DeleteBatch implements service.BatchStore. Transactions are removed by the
// foreign key's ON DELETE CASCADE.
func (s *SupabaseStore) DeleteBatch(ctx context.Context, id string) error {
	var deleted []model.Batch
	err := s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableUploads).Delete("representation", "").Eq("id", id).Execute()
		return data, err
	}, &deleted)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if len(deleted) == 0 {
		return fmt.Errorf("batch %q: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetTransactionsByBatch implements service.BatchStore.
func (s *SupabaseStore) GetTransactionsByBatch(ctx context.Context, batchID string) ([]model.Transaction, error) {
	var rows []transactionRow
	err := s.read(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableTransactions).
			Select("*", "", false).
			Eq("file_id", batchID).
			Order("seq", ascending()).
			Execute()
		return data, err
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	transactions := make([]model.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = row.Transaction
	}
	return transactions, nil
}

// UpdateTransactionCategory implements service.BatchStore.
func (s *SupabaseStore) UpdateTransactionCategory(ctx context.Context, transactionID, category string) error {
	var updated []transactionRow
	err := s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableTransactions).
			Update(map[string]string{"category": category}, "representation", "").
			Eq("id", transactionID).
			Execute()
		return data, err
	}, &updated)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("transaction %q: %w", transactionID, common.ErrNotFound)
	}
	return nil
}
