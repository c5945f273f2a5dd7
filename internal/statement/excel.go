package statement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelParser reads the first worksheet of an .xlsx workbook.
//
// The first non-empty row holds the column headers, which go through the same
// aliases as JSON record keys. Lines are worksheet row numbers. Legacy binary
// .xls workbooks are rejected as invalid documents.
type ExcelParser struct{}

// NewExcelParser creates an Excel parser.
func NewExcelParser() *ExcelParser {
	return &ExcelParser{}
}

// Format implements Parser.
func (p *ExcelParser) Format() Format {
	return FormatExcel
}

// Parse implements Parser. The text is the raw workbook bytes.
func (p *ExcelParser) Parse(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	book, err := excelize.OpenReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer func() {
		if err := book.Close(); err != nil {
			slog.Debug("Failed to close workbook", "error", err)
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidDocument)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return &Result{}, nil
	}

	header := make([]string, len(rows[headerIdx]))
	for i, cell := range rows[headerIdx] {
		header[i] = strings.TrimSpace(cell)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: sheet %q is missing columns %s (have %s)",
			ErrInvalidDocument, sheets[0], strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	newID := opts.idSource()
	result := &Result{}

	for i := headerIdx + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[i]
		if blankRow(row) {
			continue
		}

		candidate, perr := parseFields(rowFields(header, row), FormatExcel, strings.Join(row, ","), i+1)
		if perr != nil {
			if err := result.reject(opts.Policy, perr); err != nil {
				return nil, err
			}
			continue
		}

		candidate.ID = newID()
		result.Candidates = append(result.Candidates, candidate)
	}

	slog.Debug("Parsed Excel statement",
		"sheet", sheets[0],
		"transactions", len(result.Candidates),
		"skipped", len(result.Skipped))

	return result, nil
}

// rowFields keys a row's cells by header. The first of any repeated header wins.
func rowFields(header, row []string) map[string]any {
	fields := make(map[string]any, len(header))
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = row[i]
	}
	return fields
}

// missingColumns reports required fields with no matching header.
func missingColumns(header []string) []string {
	var missing []string
	required := []FieldAliases{
		{Field: "date", Keys: dateKeys},
		{Field: "description", Keys: descriptionKeys},
		{Field: "amount", Keys: amountKeys},
	}
	for _, alias := range required {
		if !hasAnyHeader(header, alias.Keys) {
			missing = append(missing, alias.Field)
		}
	}
	return missing
}

func hasAnyHeader(header, keys []string) bool {
	for _, h := range header {
		for _, key := range keys {
			if strings.EqualFold(h, key) {
				return true
			}
		}
	}
	return false
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
