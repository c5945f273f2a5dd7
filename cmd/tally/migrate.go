package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/remote"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the storage schema",
		Long: `Bring the configured store up to date.

For the sqlite backend this applies pending schema migrations. For the supabase
backend the schema has to be created in the project's SQL editor; --print-schema
prints it and migrate then checks that every table is reachable.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")
	cmd.Flags().Bool("print-schema", false, "Print the Postgres schema used by the supabase backend")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	printSchema, _ := cmd.Flags().GetBool("print-schema")
	out := cmd.OutOrStdout()

	if printSchema {
		_, err := io.WriteString(out, remote.Schema())
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if cfg.StoreBackend == config.BackendSupabase {
		store, err := initStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("supabase schema check failed (run 'tally migrate --print-schema'): %w", err)
		}
		closeStore(store)
		fmt.Fprintln(out, cli.FormatSuccess("Supabase tables are reachable")) //nolint:forbidigo // User-facing output
		return nil
	}

	slog.Info("Starting database migration",
		"database", cfg.DatabasePath,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if !status {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Database %s is at schema version %d of %d", cfg.DatabasePath, current, storage.ExpectedSchemaVersion)
	if current < storage.ExpectedSchemaVersion {
		fmt.Fprintln(out, cli.FormatWarning(msg+"; run 'tally migrate'")) //nolint:forbidigo // User-facing output
		return nil
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg)) //nolint:forbidigo // User-facing output
	return nil
}
