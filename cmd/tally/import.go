package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/ingest"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/statement"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import and categorize statement files",
		Long: `Parse statement files (CSV, JSON, OFX/QFX), categorize every row with
the current rules and save each file as an upload.

Examples:
  # Import a single statement
  tally import ~/Downloads/march.csv

  # Import every export in a directory, four at a time
  tally import ~/Downloads/statements/*.csv --concurrency 4

  # Preview without saving, failing on the first bad row
  tally import march.csv --dry-run --on-error abort`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportCmd,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().BoolP("verbose", "v", false, "Show every categorized transaction")
	cmd.Flags().String("format", "", "Force a format instead of detecting it (csv, json, ofx)")
	addImportFlags(cmd)

	return cmd
}

// addImportFlags registers the flags that override import.* and rules.file settings.
func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().String("on-error", "", "What to do with bad rows: abort or skip")
	cmd.Flags().String("match", "", "Pattern matching mode: substring or word")
	cmd.Flags().String("rules-file", "", "YAML rules file to use instead of the stored rules")
	cmd.Flags().Int("concurrency", 0, "Files processed at once")
	cmd.Flags().String("currency", "", "Currency code for rows without one")
}

// applyImportFlags copies explicitly set flags over the configuration and revalidates it.
func applyImportFlags(cmd *cobra.Command, cfg *config.Config) error {
	overrides := map[string]*string{
		"on-error":   &cfg.OnError,
		"match":      &cfg.MatchMode,
		"rules-file": &cfg.RulesFile,
		"currency":   &cfg.Currency,
	}
	for name, target := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*target = f.Value.String()
		}
	}

	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = n
	}

	return cfg.Validate()
}

type importOptions struct {
	format  statement.Format
	dryRun  bool
	verbose bool
}

type importReport struct {
	Results      []*ingest.Result
	Imported     int
	Failed       int
	Transactions int
	Skipped      int
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyImportFlags(cmd, cfg); err != nil {
		return err
	}
	pipelineCfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	var opts importOptions
	opts.dryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.verbose, _ = cmd.Flags().GetBool("verbose")
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		if opts.format, err = statement.ParseFormat(name); err != nil {
			return err
		}
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	store, err := initStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStore(store)

	rules, err := loadRules(ctx, store, cfg.RulesFile)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		slog.Warn("No category rules configured; every row will be Uncategorized. Try 'tally rules reset'.")
	}

	pipeline := ingest.NewWithConfig(nil, pipelineCfg)
	_, err = runImport(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), store, pipeline, rules, files, opts)
	return err
}

// runImport processes files concurrently and saves each successful batch unless dry-running.
// A file that fails does not stop the others; the returned error counts the failures.
func runImport(ctx context.Context, out, progress io.Writer, store service.BatchStore, pipeline *ingest.Pipeline,
	rules []model.CategoryRule, files []string, opts importOptions,
) (importReport, error) {
	var report importReport

	uploads := make([]ingest.Upload, 0, len(files))
	for _, path := range files {
		upload, err := pipeline.ReadFile(path)
		if err != nil {
			report.Failed++
			slog.Error("Failed to read statement", "file", path, "error", err)
			fmt.Fprintln(out, cli.FormatError(err.Error())) //nolint:forbidigo // User-facing output
			continue
		}
		upload.Format = opts.format
		uploads = append(uploads, upload)
	}

	if len(uploads) > 0 {
		bar := cli.NewProgressBar(progress, len(uploads), "Importing statements")
		outcomes := pipeline.ProcessAll(ctx, uploads, rules, func(ingest.Outcome) {
			_ = bar.Add(1)
		})

		for _, outcome := range outcomes {
			if outcome.Err != nil {
				report.Failed++
				fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", outcome.Filename, outcome.Err))) //nolint:forbidigo // User-facing output
				continue
			}
			if err := reportResult(ctx, out, store, outcome.Result, pipeline.Config().Currency, opts); err != nil {
				report.Failed++
				fmt.Fprintln(out, cli.FormatError(err.Error())) //nolint:forbidigo // User-facing output
				continue
			}
			report.Imported++
			report.Transactions += len(outcome.Result.Transactions)
			report.Skipped += len(outcome.Result.Skipped)
			report.Results = append(report.Results, outcome.Result)
		}
	}

	if opts.dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run complete - no data saved")) //nolint:forbidigo // User-facing output
	}

	slog.Info("Import finished",
		"files", len(files),
		"imported", report.Imported,
		"failed", report.Failed,
		"transactions", report.Transactions,
		"skipped_rows", report.Skipped,
		"dry_run", opts.dryRun)

	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d files failed to import", report.Failed, len(files))
	}
	return report, nil
}

func reportResult(ctx context.Context, out io.Writer, store service.BatchStore, res *ingest.Result, currency string, opts importOptions) error {
	fmt.Fprintln(out, cli.RenderSummary(res.Batch, res.Summary, currency)) //nolint:forbidigo // User-facing output

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d rows skipped:", len(res.Skipped)))) //nolint:forbidigo // User-facing output
		for _, perr := range res.Skipped {
			fmt.Fprintf(out, "  %v\n", perr) //nolint:forbidigo // User-facing output
		}
	}

	for _, d := range res.Discrepancies {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("line %d: %q is marked %s but its amount makes it a %s", //nolint:forbidigo // User-facing output
			d.Line, d.Description, d.Declared, d.Actual)))
	}

	if opts.verbose {
		if err := writeTransactions(out, res.Transactions); err != nil {
			return err
		}
	}

	if opts.dryRun {
		return nil
	}

	if err := store.SaveBatch(ctx, &res.Batch, res.Transactions); err != nil {
		return fmt.Errorf("failed to save %s: %w", res.Batch.Filename, err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d transactions from %s (upload %s)", //nolint:forbidigo // User-facing output
		len(res.Transactions), res.Batch.Filename, res.Batch.ID)))
	return nil
}

// writeTransactions prints transactions as an aligned table.
func writeTransactions(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Date"),
		cli.TableHeaderStyle.Render("Description"),
		cli.TableHeaderStyle.Render("Amount"),
		cli.TableHeaderStyle.Render("Category")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, txn := range txns {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			txn.Date,
			txn.Description,
			cli.FormatAmount(decimal.NewFromFloat(txn.Amount), txn.Currency),
			txn.Category); err != nil {
			return fmt.Errorf("failed to write transaction row: %w", err)
		}
	}

	return w.Flush()
}
