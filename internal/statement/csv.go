package statement

import (
	"context"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

const (
	csvDelimiter = ","
	csvFields    = 3
)

// CSVParser reads three-column statements: date, description, amount.
//
// The first line is always treated as a header. Fields are split positionally
// on commas with no quoting support, so a description containing a comma
// produces a malformed row.
type CSVParser struct{}

// NewCSVParser creates a CSV parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Format implements Parser.
func (p *CSVParser) Format() Format {
	return FormatCSV
}

// Parse implements Parser.
func (p *CSVParser) Parse(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	newID := opts.idSource()
	result := &Result{}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return result, nil
	}

	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		candidate, perr := p.parseLine(line, i+2)
		if perr != nil {
			if err := result.reject(opts.Policy, perr); err != nil {
				return nil, err
			}
			continue
		}

		candidate.ID = newID()
		result.Candidates = append(result.Candidates, candidate)
	}

	return result, nil
}

func (p *CSVParser) parseLine(line string, lineNo int) (model.Candidate, *ParseError) {
	fields := strings.Split(line, csvDelimiter)
	if len(fields) != csvFields {
		return model.Candidate{}, &ParseError{
			Format: FormatCSV,
			Line:   lineNo,
			Raw:    line,
			Err:    &MalformedRowError{Got: len(fields), Want: csvFields},
		}
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	amount, err := parseAmount(fields[2])
	if err != nil {
		return model.Candidate{}, &ParseError{Format: FormatCSV, Line: lineNo, Raw: line, Err: err}
	}

	return model.Candidate{
		Line:        lineNo,
		Date:        fields[0],
		Description: fields[1],
		Amount:      amount,
	}, nil
}
