package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/service"
	"github.com/spf13/cobra"
)

// shortIDLen is how much of a rule ID list output shows. Commands accept any unique prefix.
const shortIDLen = 8

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage category rules",
		Long: `Category rules map a description substring to a category. Rules are checked
in order and the first match wins, so put specific patterns ("gas station")
before general ones ("gas"). Rows no rule matches are Uncategorized.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesMoveCmd())
	cmd.AddCommand(rulesResetCmd())
	cmd.AddCommand(rulesExportCmd())
	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

// session is what a store-backed command runs with.
type session struct {
	store     service.Store
	rulesFile string
	mode      pattern.MatchMode
}

// withStore loads configuration, applies flag overrides, opens the store and runs fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s session) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyImportFlags(cmd, cfg); err != nil {
		return err
	}
	mode, err := pattern.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return err
	}

	store, err := initStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStore(store)

	return fn(ctx, session{store: store, rulesFile: cfg.RulesFile, mode: mode})
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runRulesList(ctx, cmd.OutOrStdout(), s.store, s.mode)
			})
		},
	}
	cmd.Flags().String("match", "", "Pattern matching mode used for overlap warnings: substring or word")
	return cmd
}

func runRulesList(ctx context.Context, out io.Writer, store service.RuleStore, mode pattern.MatchMode) error {
	rules, err := store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	if len(rules) == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No rules found. Use 'tally rules add' or 'tally rules reset' to create some.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Fprintln(out, cli.FormatTitle("Category Rules")) //nolint:forbidigo // User-facing output

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("#"),
		cli.TableHeaderStyle.Render("ID"),
		cli.TableHeaderStyle.Render("Pattern"),
		cli.TableHeaderStyle.Render("Category")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rule := range rules {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", rule.Position, shortID(rule.ID), rule.Pattern, rule.Category); err != nil {
			return fmt.Errorf("failed to write rule row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	writeShadows(out, pattern.NewClassifier(mode).FindShadowed(rules))
	return nil
}

func writeShadows(out io.Writer, shadows []pattern.Shadow) {
	for _, s := range shadows {
		msg := fmt.Sprintf("rule %d %q never matches: rule %d %q always matches first", s.Index, s.Rule.Pattern, s.ByIndex, s.By.Pattern)
		if s.Conflict {
			msg += fmt.Sprintf(" (%s instead of %s)", s.By.Category, s.Rule.Category)
		}
		fmt.Fprintln(out, cli.FormatWarning(msg)) //nolint:forbidigo // User-facing output
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// resolveRule finds the rule whose ID equals or uniquely starts with ref.
func resolveRule(ctx context.Context, store service.RuleStore, ref string) (model.CategoryRule, error) {
	if strings.TrimSpace(ref) == "" {
		return model.CategoryRule{}, fmt.Errorf("rule id cannot be empty")
	}
	rules, err := store.ListRules(ctx)
	if err != nil {
		return model.CategoryRule{}, fmt.Errorf("failed to list rules: %w", err)
	}

	var found []model.CategoryRule
	for _, rule := range rules {
		if rule.ID == ref {
			return rule, nil
		}
		if strings.HasPrefix(rule.ID, ref) {
			found = append(found, rule)
		}
	}

	switch len(found) {
	case 0:
		return model.CategoryRule{}, fmt.Errorf("rule %s: %w", ref, common.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return model.CategoryRule{}, fmt.Errorf("rule id %q is ambiguous (%d matches)", ref, len(found))
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Append a rule, or insert it at --position",
		Example: `  tally rules add "gas station" Transport
  tally rules add "costco gas" Transport --position 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, _ := cmd.Flags().GetInt("position")
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runRulesAdd(ctx, cmd.OutOrStdout(), s.store, s.mode, args[0], args[1], position)
			})
		},
	}
	cmd.Flags().Int("position", -1, "Zero-based position (default: end of the list)")
	return cmd
}

func runRulesAdd(ctx context.Context, out io.Writer, store service.RuleStore, mode pattern.MatchMode, patternText, category string, position int) error {
	rule := model.CategoryRule{
		Pattern:  strings.TrimSpace(patternText),
		Category: strings.TrimSpace(category),
	}
	if err := pattern.ValidateRule(rule); err != nil {
		return err
	}

	if err := store.AddRule(ctx, &rule); err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}
	if position >= 0 && position != rule.Position {
		if err := store.MoveRule(ctx, rule.ID, position); err != nil {
			return fmt.Errorf("failed to position rule: %w", err)
		}
	}

	slog.Info("Added category rule", "id", rule.ID, "pattern", rule.Pattern, "category", rule.Category)
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added rule %s: %q → %s", shortID(rule.ID), rule.Pattern, rule.Category))) //nolint:forbidigo // User-facing output

	rules, err := store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	var related []pattern.Shadow
	for _, s := range pattern.NewClassifier(mode).FindShadowed(rules) {
		if s.Rule.ID == rule.ID || s.By.ID == rule.ID {
			related = append(related, s)
		}
	}
	writeShadows(out, related)
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runRulesDelete(ctx, cmd.OutOrStdout(), s.store, args[0])
			})
		},
	}
}

func runRulesDelete(ctx context.Context, out io.Writer, store service.RuleStore, ref string) error {
	rule, err := resolveRule(ctx, store, ref)
	if err != nil {
		return err
	}
	if err := store.DeleteRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted rule %q → %s", rule.Pattern, rule.Category))) //nolint:forbidigo // User-facing output
	return nil
}

func rulesMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move a rule to a zero-based position",
		Long: `Move a rule to a new zero-based position. Rules in between shift by one.
Positions past the end move the rule to the end.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runRulesMove(ctx, cmd.OutOrStdout(), s.store, args[0], position)
			})
		},
	}
}

func runRulesMove(ctx context.Context, out io.Writer, store service.RuleStore, ref string, position int) error {
	if position < 0 {
		return fmt.Errorf("position must be zero or greater, got %d", position)
	}
	rule, err := resolveRule(ctx, store, ref)
	if err != nil {
		return err
	}
	if err := store.MoveRule(ctx, rule.ID, position); err != nil {
		return fmt.Errorf("failed to move rule: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Moved rule %q to position %d", rule.Pattern, position))) //nolint:forbidigo // User-facing output
	return nil
}

func rulesResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace all rules with the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withStore(cmd, func(ctx context.Context, s session) error {
				if !yes {
					ok, err := cli.Confirm(ctx, cli.NewLineReader(cmd.InOrStdin()), cmd.OutOrStdout(),
						"Replace every stored rule with the defaults?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Rules left unchanged")) //nolint:forbidigo // User-facing output
						return nil
					}
				}
				return runRulesReset(ctx, cmd.OutOrStdout(), s.store)
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runRulesReset(ctx context.Context, out io.Writer, store service.RuleStore) error {
	defaults := pattern.DefaultRules()
	if err := store.ReplaceRules(ctx, defaults); err != nil {
		return fmt.Errorf("failed to reset rules: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Installed %d default rules", len(defaults)))) //nolint:forbidigo // User-facing output
	return nil
}

func rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write rules as YAML to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s session) error {
				if len(args) == 0 {
					return runRulesExport(ctx, cmd.OutOrStdout(), s.store)
				}

				f, err := os.Create(args[0]) //nolint:gosec // user-specified output path
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", args[0], err)
				}
				if err := runRulesExport(ctx, f, s.store); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", args[0], err)
				}
				slog.Info("Exported rules", "path", args[0])
				return nil
			})
		},
	}
}

func runRulesExport(ctx context.Context, out io.Writer, store service.RuleStore) error {
	rules, err := store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	return pattern.WriteRules(out, rules)
}

func rulesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load rules from a YAML file",
		Long: `Load rules from a YAML file of the form

  rules:
    - pattern: gas station
      category: Transport

By default the file replaces the stored rules; --append adds them at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appendRules, _ := cmd.Flags().GetBool("append")
			return withStore(cmd, func(ctx context.Context, s session) error {
				return runRulesImport(ctx, cmd.OutOrStdout(), s.store, args[0], appendRules)
			})
		},
	}
	cmd.Flags().Bool("append", false, "Append to the stored rules instead of replacing them")
	return cmd
}

func runRulesImport(ctx context.Context, out io.Writer, store service.RuleStore, path string, appendRules bool) error {
	rules, err := pattern.LoadRulesFile(path)
	if err != nil {
		return err
	}

	if !appendRules {
		if err := store.ReplaceRules(ctx, rules); err != nil {
			return fmt.Errorf("failed to replace rules: %w", err)
		}
	} else {
		for i := range rules {
			if err := store.AddRule(ctx, &rules[i]); err != nil {
				return fmt.Errorf("failed to add rule %q: %w", rules[i].Pattern, err)
			}
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d rules from %s", len(rules), path))) //nolint:forbidigo // User-facing output
	return nil
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <description>",
		Short: "Show which rule a description matches",
		Example: `  tally rules test "SHELL GAS STATION #42"
  tally rules test "Uber Trip" --rules-file rules.yaml --match word`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			return withStore(cmd, func(ctx context.Context, s session) error {
				rules, err := loadRules(ctx, s.store, s.rulesFile)
				if err != nil {
					return err
				}
				return runRulesTest(cmd.OutOrStdout(), rules, s.mode, description)
			})
		},
	}
	cmd.Flags().String("match", "", "Pattern matching mode: substring or word")
	cmd.Flags().String("rules-file", "", "YAML rules file to test instead of the stored rules")
	return cmd
}

func runRulesTest(out io.Writer, rules []model.CategoryRule, mode pattern.MatchMode, description string) error {
	match := pattern.NewClassifier(mode).Explain(description, rules)

	if !match.Matched() {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%q matches no rule: %s", description, match.Category))) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%q → %s (rule %d, pattern %q, %s match)", //nolint:forbidigo // User-facing output
		description, match.Category, match.RuleIndex, match.Pattern, mode)))
	return nil
}
