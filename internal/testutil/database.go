// Package testutil provides shared fixtures and a throwaway database for tally tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// ScenarioCSV is a small statement covering a debit per rule and one credit.
const ScenarioCSV = "Date,Description,Amount\n" +
	"2023-12-01,Uber Trip,-23.50\n" +
	"2023-12-02,Whole Foods Market,-88.10\n" +
	"2023-12-03,Payroll Deposit,2500.00\n"

// ScenarioRules categorizes every row of ScenarioCSV.
func ScenarioRules() []model.CategoryRule {
	return []model.CategoryRule{
		{Pattern: "uber", Category: "Transport", Position: 0},
		{Pattern: "whole foods", Category: "Groceries", Position: 1},
		{Pattern: "payroll", Category: "Income", Position: 2},
	}
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Rules          []model.CategoryRule
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database seeded with rules.
// It is closed when the test ends.
//
// Example:
//
//	store := testutil.SetupTestDB(t, testutil.ScenarioRules()...)
func SetupTestDB(t *testing.T, rules ...model.CategoryRule) *storage.SQLiteStorage {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Rules: rules})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Rules) > 0 {
		if err := store.ReplaceRules(ctx, opts.Rules); err != nil {
			t.Fatalf("failed to seed rules: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return store
}
