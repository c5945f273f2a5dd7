// Package ingest runs uploaded statement files through parsing and categorization.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/statement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxFileSize is the largest upload accepted unless configured otherwise.
const DefaultMaxFileSize int64 = 10 << 20

var (
	// ErrFileTooLarge is returned for uploads over the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	// ErrEmptyUpload is returned for zero-byte uploads.
	ErrEmptyUpload = errors.New("upload is empty")
	// ErrUnsupportedFormat is returned when no parser handles the upload.
	ErrUnsupportedFormat = statement.ErrUnsupportedFormat
)

// Upload is a statement file handed to the pipeline.
type Upload struct {
	Filename    string
	ContentType string
	Format      statement.Format // Overrides detection when set
	Content     []byte
}

// Config holds pipeline settings.
type Config struct {
	Currency    string // Applied to rows whose source has no currency
	MaxFileSize int64
	Concurrency int // Files processed at once by ProcessAll
	Policy      statement.ErrorPolicy
	MatchMode   pattern.MatchMode
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxFileSize: DefaultMaxFileSize,
		Concurrency: 4,
		Policy:      statement.AbortOnError,
		MatchMode:   pattern.Substring,
	}
}

// Discrepancy is a row whose declared debit/credit marker contradicts its amount sign.
// The amount sign wins; the row is only reported.
type Discrepancy struct {
	Description string
	Declared    string
	Actual      model.TransactionType
	Line        int
}

// Result is one processed upload.
type Result struct {
	Summary       model.Summary
	Batch         model.Batch
	Transactions  []model.Transaction
	Matches       []pattern.Match // Parallel to Transactions
	Skipped       []*statement.ParseError
	Discrepancies []Discrepancy
}

// Pipeline parses uploads and categorizes every row.
type Pipeline struct {
	registry   *statement.Registry
	classifier pattern.Categorizer
	now        func() time.Time
	config     Config
}

// New creates a pipeline with the default configuration.
func New(registry *statement.Registry) *Pipeline {
	return NewWithConfig(registry, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration.
func NewWithConfig(registry *statement.Registry, config Config) *Pipeline {
	if registry == nil {
		registry = statement.DefaultRegistry()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Pipeline{
		registry:   registry,
		classifier: pattern.NewClassifier(config.MatchMode),
		config:     config,
		now:        time.Now,
	}
}

// Config returns the pipeline's effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Process parses one upload and categorizes each row against rules.
// Rules are read, never modified.
func (p *Pipeline) Process(ctx context.Context, upload Upload, rules []pattern.Rule) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := int64(len(upload.Content))
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyUpload, upload.Filename)
	}
	if size > p.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, upload.Filename, size, p.config.MaxFileSize)
	}

	format := upload.Format
	if format == "" {
		detected, err := statement.Detect(upload.Filename, upload.ContentType)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	parser, err := p.registry.Parser(format)
	if err != nil {
		return nil, err
	}

	text := string(upload.Content)
	if !statement.IsBinary(format) {
		text = decodeText(upload.Content)
	}

	batchID := uuid.NewString()
	parsed, err := parser.Parse(ctx, text, statement.Options{
		NewID:  statement.PrefixedIDs(batchID),
		Policy: p.config.Policy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", upload.Filename, err)
	}

	now := p.now()
	result := &Result{
		Batch: model.Batch{
			ID:          batchID,
			Filename:    filepath.Base(upload.Filename),
			Format:      string(format),
			SizeBytes:   size,
			RowCount:    len(parsed.Candidates),
			SkippedRows: len(parsed.Skipped),
			UploadedAt:  now,
		},
		Transactions: make([]model.Transaction, 0, len(parsed.Candidates)),
		Matches:      make([]pattern.Match, 0, len(parsed.Candidates)),
		Skipped:      parsed.Skipped,
		Summary:      newSummary(),
	}

	for _, c := range parsed.Candidates {
		if c.Currency == "" {
			c.Currency = p.config.Currency
		}

		match := p.classifier.Explain(c.Description, rules)
		txn := model.NewTransaction(c, match.Category)
		txn.BatchID = batchID
		txn.CreatedAt = now

		if d, ok := checkDeclaredType(c, txn.Type); ok {
			slog.Warn("Declared transaction type disagrees with amount sign",
				"file", upload.Filename,
				"line", d.Line,
				"declared", d.Declared,
				"amount", c.Amount.String())
			result.Discrepancies = append(result.Discrepancies, d)
		}

		addToSummary(&result.Summary, c.Amount, match.Category)
		result.Transactions = append(result.Transactions, txn)
		result.Matches = append(result.Matches, match)
	}
	result.Summary.Discrepancies = len(result.Discrepancies)

	slog.Info("Processed statement",
		"file", upload.Filename,
		"format", format,
		"batch_id", batchID,
		"transactions", len(result.Transactions),
		"skipped", len(result.Skipped))

	return result, nil
}

func checkDeclaredType(c model.Candidate, actual model.TransactionType) (Discrepancy, bool) {
	if c.DeclaredType == "" {
		return Discrepancy{}, false
	}
	declared, known := model.ParseTransactionType(c.DeclaredType)
	if !known || declared == actual {
		return Discrepancy{}, false
	}
	// Zero amounts carry no direction.
	if c.Amount.IsZero() {
		return Discrepancy{}, false
	}
	return Discrepancy{
		Line:        c.Line,
		Description: c.Description,
		Declared:    c.DeclaredType,
		Actual:      actual,
	}, true
}

func newSummary() model.Summary {
	return model.Summary{
		CategoryCounts: make(map[string]int),
		DebitTotal:     decimal.Zero,
		CreditTotal:    decimal.Zero,
	}
}

func addToSummary(s *model.Summary, amount decimal.Decimal, category string) {
	s.TotalCount++
	s.CategoryCounts[category]++
	if model.TypeForAmount(amount) == model.TypeDebit {
		s.DebitCount++
		s.DebitTotal = s.DebitTotal.Add(amount.Abs())
		return
	}
	s.CreditCount++
	s.CreditTotal = s.CreditTotal.Add(amount)
}

// Summarize aggregates stored transactions, e.g. a batch read back from a store.
func Summarize(txns []model.Transaction) model.Summary {
	s := newSummary()
	for _, txn := range txns {
		addToSummary(&s, decimal.NewFromFloat(txn.Amount), txn.Category)
	}
	return s
}
