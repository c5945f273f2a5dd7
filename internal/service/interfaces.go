// Package service defines the interfaces shared by tally's storage backends.
package service

import (
	"context"

	"github.com/Veraticus/tally/internal/model"
)

// RuleStore persists the ordered category rule list.
type RuleStore interface {
	// ListRules returns every rule in position order.
	ListRules(ctx context.Context) ([]model.CategoryRule, error)
	// AddRule appends a rule to the end of the list and fills in its ID, Position and CreatedAt.
	AddRule(ctx context.Context, rule *model.CategoryRule) error
	// DeleteRule removes a rule and closes the gap in positions.
	DeleteRule(ctx context.Context, id string) error
	// MoveRule moves a rule to a zero-based position, shifting the rules in between.
	MoveRule(ctx context.Context, id string, position int) error
	// ReplaceRules swaps the whole list for rules, in the given order.
	ReplaceRules(ctx context.Context, rules []model.CategoryRule) error
}

// BatchStore persists uploaded statement batches and their transactions.
type BatchStore interface {
	// SaveBatch stores a batch together with its transactions.
	SaveBatch(ctx context.Context, batch *model.Batch, transactions []model.Transaction) error
	// ListBatches returns batches newest first.
	ListBatches(ctx context.Context) ([]model.Batch, error)
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	// DeleteBatch removes a batch and all of its transactions.
	DeleteBatch(ctx context.Context, id string) error
	// GetTransactionsByBatch returns a batch's transactions in source order.
	GetTransactionsByBatch(ctx context.Context, batchID string) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, transactionID, category string) error
}

// Store is the full persistence contract implemented by each backend.
type Store interface {
	RuleStore
	BatchStore
	Migrate(ctx context.Context) error
	Close() error
}
