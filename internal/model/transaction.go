package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies money movement relative to the account holder.
type TransactionType string

const (
	// TypeDebit is money leaving the account.
	TypeDebit TransactionType = "debit"
	// TypeCredit is money entering the account.
	TypeCredit TransactionType = "credit"
)

// TypeForAmount derives the transaction type from the amount sign.
// Negative amounts are outflows; zero and positive amounts are credits.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TypeDebit
	}
	return TypeCredit
}

// ParseTransactionType normalizes the debit/credit markers banks put in exports.
// It returns false when the value is not recognized.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch normalizeToken(s) {
	case "debit", "dr", "d", "withdrawal", "purchase", "payment", "pos", "atm", "fee", "check",
		"srvchg", "cash", "directdebit", "repeatpmt":
		return TypeDebit, true
	case "credit", "cr", "c", "deposit", "int", "div", "dep", "directdep":
		return TypeCredit, true
	}
	return "", false
}

// Candidate is an unvalidated record pulled from one statement entry.
// It has not been categorized yet.
type Candidate struct {
	Amount       decimal.Decimal
	ID           string
	Date         string // Source text, not calendar-validated
	Description  string
	Currency     string // Empty when the format has no currency column
	Reference    string // Source-side identifier such as an OFX FITID
	DeclaredType string // Debit/credit marker as written by the source, if any
	Line         int    // 1-based line (or record index) in the source
}

// Transaction is a normalized, categorized statement entry.
type Transaction struct {
	CreatedAt   time.Time       `json:"created_at"`
	ID          string          `json:"id"`
	BatchID     string          `json:"file_id,omitempty"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	Amount      float64         `json:"amount"`
}

// NewTransaction builds a transaction from a candidate and its category.
func NewTransaction(c Candidate, category string) Transaction {
	amount, _ := c.Amount.Float64()
	return Transaction{
		ID:          c.ID,
		Date:        c.Date,
		Description: c.Description,
		Amount:      amount,
		Category:    category,
		Type:        TypeForAmount(c.Amount),
		Currency:    c.Currency,
	}
}
