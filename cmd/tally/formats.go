package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/statement"
	"github.com/spf13/cobra"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported statement formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFormats(cmd.OutOrStdout(), statement.DefaultRegistry())
		},
	}
}

func runFormats(out io.Writer, registry *statement.Registry) error {
	fmt.Fprintln(out, cli.FormatTitle("Statement Formats")) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Format"),
		cli.TableHeaderStyle.Render("Extensions"),
		cli.TableHeaderStyle.Render("Status"),
		cli.TableHeaderStyle.Render("Description")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, info := range statement.KnownFormats {
		status := cli.SuccessStyle.Render("supported")
		if !registry.Supports(info.Format) {
			status = cli.SubtleStyle.Render("not yet")
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.Format, strings.Join(info.Extensions, " "), status, info.Description); err != nil {
			return fmt.Errorf("failed to write format row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	fmt.Fprintln(out, "\n"+cli.BoldStyle.Render("JSON keys and spreadsheet headers (case-insensitive):")) //nolint:forbidigo // User-facing output
	for _, alias := range statement.JSONFieldAliases() {
		fmt.Fprintf(out, "  %-12s %s\n", alias.Field, strings.Join(alias.Keys, ", ")) //nolint:forbidigo // User-facing output
	}
	return nil
}
