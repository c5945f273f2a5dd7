package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ingest"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/spf13/cobra"
)

func recategorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recategorize <upload-id>",
		Short: "Re-run the current rules over a stored upload",
		Long: `Classify every transaction of an upload again with the current rules and
save the rows whose category changed. Use --dry-run to only list the changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return withStore(cmd, func(ctx context.Context, s session) error {
				rules, err := loadRules(ctx, s.store, s.rulesFile)
				if err != nil {
					return err
				}
				pipeline := ingest.NewWithConfig(nil, ingest.Config{MatchMode: s.mode})
				_, err = runRecategorize(ctx, cmd.OutOrStdout(), s.store, pipeline, rules, args[0], dryRun)
				return err
			})
		},
	}

	cmd.Flags().BoolP("dry-run", "d", false, "List changes without saving them")
	cmd.Flags().String("match", "", "Pattern matching mode: substring or word")
	cmd.Flags().String("rules-file", "", "YAML rules file to use instead of the stored rules")

	return cmd
}

func runRecategorize(ctx context.Context, out io.Writer, store service.BatchStore, pipeline *ingest.Pipeline,
	rules []model.CategoryRule, batchID string, dryRun bool,
) ([]ingest.Change, error) {
	if _, err := store.GetBatch(ctx, batchID); err != nil {
		return nil, fmt.Errorf("failed to get upload %s: %w", batchID, err)
	}
	txns, err := store.GetTransactionsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	changes := pipeline.Recategorize(txns, rules)
	if len(changes) == 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("All %d transactions already match the current rules", len(txns)))) //nolint:forbidigo // User-facing output
		return nil, nil
	}

	for _, c := range changes {
		fmt.Fprintf(out, "  %s  %-40s %s → %s\n", c.Transaction.Date, c.Transaction.Description, //nolint:forbidigo // User-facing output
			cli.SubtleStyle.Render(c.From), c.Transaction.Category)
	}

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions would change", len(changes)))) //nolint:forbidigo // User-facing output
		return changes, nil
	}

	for _, c := range changes {
		if err := store.UpdateTransactionCategory(ctx, c.Transaction.ID, c.Transaction.Category); err != nil {
			return changes, fmt.Errorf("failed to update transaction %s: %w", c.Transaction.ID, err)
		}
	}

	slog.Info("Recategorized upload", "batch_id", batchID, "changed", len(changes), "total", len(txns))
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated %d of %d transactions", len(changes), len(txns)))) //nolint:forbidigo // User-facing output
	return changes, nil
}
