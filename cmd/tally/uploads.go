package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/ingest"
	"github.com/Veraticus/tally/internal/service"
	"github.com/spf13/cobra"
)

func uploadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uploads",
		Aliases: []string{"files"},
		Short:   "Inspect and remove imported statement files",
	}

	cmd.AddCommand(uploadsListCmd())
	cmd.AddCommand(uploadsShowCmd())
	cmd.AddCommand(uploadsDeleteCmd())

	return cmd
}

func uploadsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runUploadsList(ctx, cmd.OutOrStdout(), s.store)
			})
		},
	}
}

func runUploadsList(ctx context.Context, out io.Writer, store service.BatchStore) error {
	batches, err := store.ListBatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	if len(batches) == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No uploads yet. Use 'tally import' to add a statement.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Fprintln(out, cli.FormatTitle("Uploads")) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("ID"),
		cli.TableHeaderStyle.Render("File"),
		cli.TableHeaderStyle.Render("Format"),
		cli.TableHeaderStyle.Render("Rows"),
		cli.TableHeaderStyle.Render("Skipped"),
		cli.TableHeaderStyle.Render("Uploaded")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range batches {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			b.ID, b.Filename, b.Format, b.RowCount, b.SkippedRows,
			b.UploadedAt.Local().Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write upload row: %w", err)
		}
	}
	return w.Flush()
}

func uploadsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <upload-id>",
		Short: "Show an upload's summary and transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runUploadsShow(ctx, cmd.OutOrStdout(), s.store, args[0])
			})
		},
	}
}

func runUploadsShow(ctx context.Context, out io.Writer, store service.BatchStore, id string) error {
	batch, err := store.GetBatch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get upload %s: %w", id, err)
	}
	txns, err := store.GetTransactionsByBatch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get transactions: %w", err)
	}

	currency := ""
	if len(txns) > 0 {
		currency = txns[0].Currency
	}
	fmt.Fprintln(out, cli.RenderSummary(*batch, ingest.Summarize(txns), currency)) //nolint:forbidigo // User-facing output
	return writeTransactions(out, txns)
}

func uploadsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <upload-id>",
		Short: "Delete an upload and all of its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withStore(cmd, func(ctx context.Context, s session) error {
				if !yes {
					ok, err := cli.Confirm(ctx, cli.NewLineReader(cmd.InOrStdin()), cmd.OutOrStdout(),
						fmt.Sprintf("Delete upload %s and its transactions?", args[0]))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Upload kept")) //nolint:forbidigo // User-facing output
						return nil
					}
				}
				return runUploadsDelete(ctx, cmd.OutOrStdout(), s.store, args[0])
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runUploadsDelete(ctx context.Context, out io.Writer, store service.BatchStore, id string) error {
	if err := store.DeleteBatch(ctx, id); err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", id, err)
	}
	fmt.Fprintln(out, cli.FormatSuccess("Deleted upload "+id)) //nolint:forbidigo // User-facing output
	return nil
}
