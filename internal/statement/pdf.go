package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const pdfDateLayout = "2 Jan 2006"

// Statement line layouts, tried in order. Each must name date, description,
// amount and type groups; currency is optional.
var pdfLinePatterns = []*regexp.Regexp{
	// 15 Jan 2024 UBER TRIP 23.50 AED Debit
	regexp.MustCompile(`(?P<date>\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\s+(?P<description>[^0-9-]+?)\s+(?P<amount>[\d,.-]+)\s+(?P<currency>[A-Z]+)\s+(?P<type>Debit|Credit|DEBIT|CREDIT)`),
	// 15 Jan 2024 23.50 UBER TRIP Debit
	regexp.MustCompile(`(?P<date>\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\s+(?P<amount>[\d,.-]+)\s+(?P<description>[^0-9-]+?)\s+(?P<type>Debit|Credit|DEBIT|CREDIT)`),
	// UBER TRIP 15 Jan 2024 23.50 Debit
	regexp.MustCompile(`(?P<description>[^0-9]+?)\s+(?P<date>\d{1,2}\s+[A-Za-z]{3}\s+\d{4})\s+(?P<amount>[\d,.-]+)\s+(?P<type>Debit|Credit|DEBIT|CREDIT)`),
}

// ErrNoTransactions is returned when a PDF has no line that looks like a transaction.
var ErrNoTransactions = errors.New("no transactions found")

// PDFParser reads text-based PDF bank statements.
//
// Text is extracted row by row and each row that matches one of the known
// statement layouts becomes a candidate. Other rows (headers, balances, page
// footers) are ignored. Amounts are printed unsigned on most statements, so a
// Debit marker makes the amount negative. Lines are extracted row numbers.
type PDFParser struct{}

// NewPDFParser creates a PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Format implements Parser.
func (p *PDFParser) Format() Format {
	return FormatPDF
}

// Parse implements Parser. The text is the raw document bytes.
func (p *PDFParser) Parse(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := extractPDFLines(text)
	if err != nil {
		return nil, err
	}
	return p.parseLines(ctx, lines, opts)
}

func (p *PDFParser) parseLines(ctx context.Context, lines []string, opts Options) (*Result, error) {
	newID := opts.idSource()
	result := &Result{}
	matched := 0
	// Casers keep state, so each parse gets its own.
	titler := cases.Title(language.English)

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		candidate, perr, ok := p.parseLine(titler, line, i+1)
		if !ok {
			continue
		}
		matched++
		if perr != nil {
			if err := result.reject(opts.Policy, perr); err != nil {
				return nil, err
			}
			continue
		}

		candidate.ID = newID()
		result.Candidates = append(result.Candidates, candidate)
	}

	if matched == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, ErrNoTransactions)
	}

	slog.Debug("Parsed PDF statement",
		"lines", len(lines),
		"transactions", len(result.Candidates),
		"skipped", len(result.Skipped))

	return result, nil
}

// parseLine reports ok=false when no layout matches with a readable date.
func (p *PDFParser) parseLine(titler cases.Caser, line string, lineNo int) (model.Candidate, *ParseError, bool) {
	for _, re := range pdfLinePatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group := func(name string) string {
			if i := re.SubexpIndex(name); i >= 0 {
				return strings.TrimSpace(m[i])
			}
			return ""
		}

		date, err := time.Parse(pdfDateLayout, strings.Join(strings.Fields(group("date")), " "))
		if err != nil {
			continue
		}

		amount, err := parseLooseAmount(group("amount"))
		if err != nil {
			return model.Candidate{}, &ParseError{Format: FormatPDF, Line: lineNo, Raw: line, Err: err}, true
		}

		declared := titler.String(group("type"))
		if t, _ := model.ParseTransactionType(declared); t == model.TypeDebit && amount.IsPositive() {
			amount = amount.Neg()
		}

		return model.Candidate{
			Line:         lineNo,
			Date:         date.Format("2006-01-02"),
			Description:  group("description"),
			Amount:       amount,
			DeclaredType: declared,
			Currency:     group("currency"),
		}, nil, true
	}
	return model.Candidate{}, nil, false
}

// extractPDFLines returns the document text one visual row per line, pages in order.
func extractPDFLines(data string) (lines []string, err error) {
	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("%w: %v", ErrInvalidDocument, r)
		}
	}()

	reader, err := pdf.NewReader(strings.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrInvalidDocument, n, err)
		}
		for _, row := range rows {
			lines = append(lines, joinTexts(row.Content))
		}
	}
	return lines, nil
}

// joinTexts lays glyph runs out left to right, adding a space where the gap
// between runs is wider than a fraction of the font size.
func joinTexts(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > prev.FontSize*0.2 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}
