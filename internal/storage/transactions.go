package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

func (s *SQLiteStorage) insertTransactions(ctx context.Context, tx *sql.Tx, batchID string, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, file_id, seq, date, description, amount, type, category, currency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i, txn := range transactions {
		createdAt := txn.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err := stmt.ExecContext(ctx,
			txn.ID, batchID, i, txn.Date, txn.Description, txn.Amount,
			string(txn.Type), txn.Category, txn.Currency, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, translateError(err))
		}
	}

	return nil
}

// GetTransactionsByBatch returns a batch's transactions in source file order.
func (s *SQLiteStorage) GetTransactionsByBatch(ctx context.Context, batchID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, date, description, amount, type, category, currency, created_at
		FROM transactions
		WHERE file_id = ?
		ORDER BY seq ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var txnType string
		if err := rows.Scan(
			&txn.ID, &txn.BatchID, &txn.Date, &txn.Description, &txn.Amount,
			&txnType, &txn.Category, &txn.Currency, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Type = model.TransactionType(txnType)
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// UpdateTransactionCategory sets one transaction's category.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, transactionID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE transactions SET category = ? WHERE id = ?", category, transactionID)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return expectAffected(result, "transaction", transactionID)
}
