// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86"))
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	LedgerIcon  = "📒"
	ChartIcon   = "📊"
	FolderIcon  = "🗄️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the ledger icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(LedgerIcon + " " + title)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// FormatAmount renders a money amount with two decimals and an optional currency code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// RenderSummary renders a batch summary: counts, debit and credit totals,
// and transactions per category, largest first.
func RenderSummary(batch model.Batch, summary model.Summary, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d transactions", BoldStyle.Render("Rows:"), summary.TotalCount)
	if batch.SkippedRows > 0 {
		fmt.Fprintf(&b, " (%s)", WarningStyle.Render(fmt.Sprintf("%d skipped", batch.SkippedRows)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d totaling %s\n", BoldStyle.Render("Debits:"),
		summary.DebitCount, FormatAmount(summary.DebitTotal, currency))
	fmt.Fprintf(&b, "%s %d totaling %s\n", BoldStyle.Render("Credits:"),
		summary.CreditCount, FormatAmount(summary.CreditTotal, currency))
	if summary.Discrepancies > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d rows declare a type that contradicts their amount sign", summary.Discrepancies)))
		b.WriteString("\n")
	}

	if len(summary.CategoryCounts) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render("Categories:"))
		for _, entry := range SortedCategoryCounts(summary.CategoryCounts) {
			fmt.Fprintf(&b, "\n  %-24s %d", entry.Category, entry.Count)
		}
	}

	return RenderBox(fmt.Sprintf("%s %s [%s]", ChartIcon, batch.Filename, batch.Format), b.String())
}

// CategoryCount is one entry of a per-category tally.
type CategoryCount struct {
	Category string
	Count    int
}

// SortedCategoryCounts orders categories by count descending, then by name.
func SortedCategoryCounts(counts map[string]int) []CategoryCount {
	entries := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		entries = append(entries, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Category < entries[j].Category
	})
	return entries
}
