package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Category rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS category_rules (
					id TEXT PRIMARY KEY,
					pattern TEXT NOT NULL,
					category TEXT NOT NULL,
					position INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_category_rules_position ON category_rules(position)`,
			)
		},
	},
	{
		Version:     2,
		Description: "File uploads and transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS file_uploads (
					id TEXT PRIMARY KEY,
					filename TEXT NOT NULL,
					format TEXT NOT NULL,
					file_size INTEGER NOT NULL DEFAULT 0,
					row_count INTEGER NOT NULL DEFAULT 0,
					skipped_rows INTEGER NOT NULL DEFAULT 0,
					uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					file_id TEXT NOT NULL REFERENCES file_uploads(id) ON DELETE CASCADE,
					seq INTEGER NOT NULL,
					date TEXT NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					type TEXT NOT NULL,
					category TEXT NOT NULL,
					currency TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_file ON transactions(file_id, seq)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= version {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if upErr := migration.Up(tx); upErr != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
			}
			if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
				return fmt.Errorf("failed to update schema version: %w", execErr)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
