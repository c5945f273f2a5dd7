// Package storage provides the SQLite persistence layer for tally.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidPosition    = errors.New("invalid rule position")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidBatch       = errors.New("invalid batch")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRule(rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	return pattern.ValidateRule(*rule)
}

func validateBatch(batch *model.Batch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if strings.TrimSpace(batch.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBatch)
	}
	if strings.TrimSpace(batch.Filename) == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidBatch)
	}
	return nil
}

// validateTransactions checks every transaction of a batch. An empty batch is allowed.
func validateTransactions(transactions []model.Transaction) error {
	seen := make(map[string]bool, len(transactions))
	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("transaction at index %d: %w: missing ID", i, ErrInvalidTransaction)
		}
		if seen[txn.ID] {
			return fmt.Errorf("transaction at index %d: %w: duplicate ID %q", i, ErrInvalidTransaction, txn.ID)
		}
		seen[txn.ID] = true
		if txn.Category == "" {
			return fmt.Errorf("transaction at index %d: %w: missing category", i, ErrInvalidTransaction)
		}
	}
	return nil
}
