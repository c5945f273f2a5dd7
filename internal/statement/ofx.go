package statement

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags left without a closing bracket at end of line.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Prefixes banks prepend to card purchase descriptions.
var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// OFXParser reads OFX and QFX statements.
type OFXParser struct{}

// NewOFXParser creates an OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// Format implements Parser.
func (p *OFXParser) Format() Format {
	return FormatOFX
}

// preprocess fixes formatting quirks common in bank-generated OFX.
func (p *OFXParser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}

// Parse implements Parser. Each statement transaction counts as one line, in
// document order: bank statements first, then credit card statements.
func (p *OFXParser) Parse(ctx context.Context, text string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var entries []ofxEntry
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			for _, tx := range stmt.BankTranList.Transactions {
				entries = append(entries, ofxEntry{tx: tx, currency: stmt.CurDef.String()})
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			for _, tx := range stmt.BankTranList.Transactions {
				entries = append(entries, ofxEntry{tx: tx, currency: stmt.CurDef.String()})
			}
		}
	}

	newID := opts.idSource()
	result := &Result{}

	for i, entry := range entries {
		candidate, perr := p.convert(entry, i+1)
		if perr != nil {
			if err := result.reject(opts.Policy, perr); err != nil {
				return nil, err
			}
			continue
		}
		candidate.ID = newID()
		result.Candidates = append(result.Candidates, candidate)
	}

	slog.Debug("Parsed OFX statement",
		"transactions", len(result.Candidates),
		"skipped", len(result.Skipped))

	return result, nil
}

type ofxEntry struct {
	tx       ofxgo.Transaction
	currency string
}

func (p *OFXParser) convert(entry ofxEntry, line int) (model.Candidate, *ParseError) {
	tx := entry.tx

	amountText := tx.TrnAmt.FloatString(8)
	amount, err := parseAmount(amountText)
	if err != nil {
		return model.Candidate{}, &ParseError{Format: FormatOFX, Line: line, Raw: string(tx.FiTID), Err: err}
	}

	description := extractMerchantName(tx)
	if description == "" {
		return model.Candidate{}, &ParseError{
			Format: FormatOFX,
			Line:   line,
			Raw:    string(tx.FiTID),
			Err:    &MalformedRowError{Reason: "missing payee and name"},
		}
	}

	currency := entry.currency
	if currency == "XXX" {
		currency = ""
	}

	return model.Candidate{
		Line:         line,
		Date:         tx.DtPosted.Time.Format("2006-01-02"),
		Description:  description,
		Amount:       amount,
		Currency:     currency,
		Reference:    string(tx.FiTID),
		DeclaredType: tx.TrnType.String(),
	}, nil
}

// extractMerchantName picks the most readable description an OFX entry offers.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE", "":
		return true
	}
	return false
}
