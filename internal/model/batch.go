package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch describes one uploaded statement file. Deleting a batch deletes its transactions.
type Batch struct {
	UploadedAt  time.Time `json:"uploaded_at"`
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	SizeBytes   int64     `json:"file_size"`
	RowCount    int       `json:"row_count"`
	SkippedRows int       `json:"skipped_rows"`
}

// Summary aggregates a processed batch.
type Summary struct {
	CategoryCounts map[string]int
	DebitTotal     decimal.Decimal // Sum of absolute debit amounts
	CreditTotal    decimal.Decimal
	TotalCount     int
	DebitCount     int
	CreditCount    int
	Discrepancies  int // Rows whose declared type disagrees with the amount sign
}
