package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Column aliases accepted in JSON records and spreadsheet headers, matched
// case-insensitively.
var (
	dateKeys        = []string{"date", "transaction_date", "trans_date", "posting_date"}
	descriptionKeys = []string{"description", "details", "transaction_details", "memo", "reference", "narrative"}
	amountKeys      = []string{"amount", "transaction_amount", "value"}
	typeKeys        = []string{"type", "transaction_type", "dr_cr", "debit_credit", "debit/credit"}
	currencyKeys    = []string{"currency", "ccy", "curr"}
)

// FieldAliases names a record field and the keys accepted for it.
type FieldAliases struct {
	Field string
	Keys  []string
}

// JSONFieldAliases lists the keys the JSON and Excel parsers accept for each field.
func JSONFieldAliases() []FieldAliases {
	return []FieldAliases{
		{Field: "date", Keys: dateKeys},
		{Field: "description", Keys: descriptionKeys},
		{Field: "amount", Keys: amountKeys},
		{Field: "type", Keys: typeKeys},
		{Field: "currency", Keys: currencyKeys},
	}
}

// JSONParser reads statements exported as JSON.
//
// Accepted shapes are a top-level array of records, an object holding a
// "transactions" array, or a single record object. Each record counts as one
// line for error reporting.
type JSONParser struct{}

// NewJSONParser creates a JSON parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Format implements Parser.
func (p *JSONParser) Format() Format {
	return FormatJSON
}

// Parse implements Parser.
func (p *JSONParser) Parse(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := decodeRecords(text)
	if err != nil {
		return nil, err
	}

	newID := opts.idSource()
	result := &Result{}

	for i, rec := range records {
		candidate, perr := p.parseRecord(rec, i+1)
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

func decodeRecords(text string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if txns, ok := lookup(v, "transactions"); ok {
			list, isList := txns.([]any)
			if !isList {
				return nil, fmt.Errorf("%w: transactions is not an array", ErrInvalidDocument)
			}
			return list, nil
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("%w: expected an array or object", ErrInvalidDocument)
	}
}

func (p *JSONParser) parseRecord(rec any, line int) (model.Candidate, *ParseError) {
	raw, _ := json.Marshal(rec)

	fields, ok := rec.(map[string]any)
	if !ok {
		return model.Candidate{}, &ParseError{
			Format: FormatJSON,
			Line:   line,
			Raw:    string(raw),
			Err:    &MalformedRowError{Reason: "record is not an object"},
		}
	}
	return parseFields(fields, FormatJSON, string(raw), line)
}

// parseFields builds a candidate from a keyed record using the column aliases.
func parseFields(fields map[string]any, format Format, raw string, line int) (model.Candidate, *ParseError) {
	malformed := func(reason string) *ParseError {
		return &ParseError{
			Format: format,
			Line:   line,
			Raw:    raw,
			Err:    &MalformedRowError{Reason: reason},
		}
	}

	date, ok := lookupString(fields, dateKeys)
	if !ok {
		return model.Candidate{}, malformed("missing date")
	}
	description, ok := lookupString(fields, descriptionKeys)
	if !ok {
		return model.Candidate{}, malformed("missing description")
	}
	amountText, ok := lookupString(fields, amountKeys)
	if !ok {
		return model.Candidate{}, malformed("missing amount")
	}

	amount, err := parseLooseAmount(amountText)
	if err != nil {
		return model.Candidate{}, &ParseError{Format: format, Line: line, Raw: raw, Err: err}
	}

	declared, _ := lookupString(fields, typeKeys)
	currency, _ := lookupString(fields, currencyKeys)

	return model.Candidate{
		Line:         line,
		Date:         date,
		Description:  description,
		Amount:       amount,
		DeclaredType: declared,
		Currency:     strings.ToUpper(currency),
	}, nil
}

// lookup finds a key case-insensitively. An exact match wins; otherwise the
// lexically smallest matching key does, so duplicates resolve the same way
// on every run.
func lookup(fields map[string]any, key string) (any, bool) {
	if v, ok := fields[key]; ok {
		return v, true
	}
	match, found := "", false
	for k := range fields {
		if !strings.EqualFold(strings.TrimSpace(k), key) {
			continue
		}
		if !found || k < match {
			match, found = k, true
		}
	}
	if !found {
		return nil, false
	}
	return fields[match], true
}

// lookupString returns the first alias present with a non-empty scalar value.
func lookupString(fields map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		v, ok := lookup(fields, key)
		if !ok || v == nil {
			continue
		}

		var s string
		switch val := v.(type) {
		case string:
			s = val
		case json.Number:
			s = val.String()
		case bool:
			s = fmt.Sprint(val)
		default:
			continue
		}

		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}
