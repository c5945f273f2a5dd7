// Package statement turns uploaded statement files into transaction candidates.
//
// Every supported file format implements Parser and yields the same ordered
// candidate sequence, so callers never special-case a format. Parsers are
// stateless; per-call behavior (id generation, bad-row handling) comes in
// through Options.
package statement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/model"
	"github.com/google/uuid"
)

// Parser converts raw statement text into candidates.
type Parser interface {
	// Format reports which file format the parser handles.
	Format() Format
	// Parse reads the whole statement. Output preserves source order.
	// Binary formats get the file bytes unchanged in text.
	Parse(ctx context.Context, text string, opts Options) (*Result, error)
}

// ErrorPolicy decides what a parser does with a row it cannot read.
type ErrorPolicy int

const (
	// AbortOnError fails the whole parse on the first bad row.
	AbortOnError ErrorPolicy = iota
	// SkipInvalidRows drops bad rows and reports them in Result.Skipped.
	SkipInvalidRows
)

func (p ErrorPolicy) String() string {
	if p == SkipInvalidRows {
		return "skip"
	}
	return "abort"
}

// ParseErrorPolicy reads a policy name ("abort" or "skip").
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "":
		return AbortOnError, nil
	case "skip":
		return SkipInvalidRows, nil
	default:
		return AbortOnError, fmt.Errorf("unknown error policy %q (want abort or skip)", s)
	}
}

// IDSource yields a fresh candidate id on each call.
type IDSource func() string

// RandomIDs returns an id source backed by random UUIDs.
func RandomIDs() IDSource {
	return uuid.NewString
}

// PrefixedIDs numbers ids under a prefix: prefix-1, prefix-2, ...
// The returned source is meant for a single parse call and is not safe for concurrent use.
func PrefixedIDs(prefix string) IDSource {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// Options tune a single Parse call.
type Options struct {
	NewID  IDSource // Defaults to RandomIDs
	Policy ErrorPolicy
}

func (o Options) idSource() IDSource {
	if o.NewID == nil {
		return RandomIDs()
	}
	return o.NewID
}

// Result is the outcome of a parse.
type Result struct {
	Candidates []model.Candidate
	Skipped    []*ParseError
}

// reject applies the error policy to a bad row. A non-nil return aborts the parse.
func (r *Result) reject(policy ErrorPolicy, perr *ParseError) error {
	if policy == AbortOnError {
		return perr
	}
	slog.Debug("Skipping unreadable row",
		"format", perr.Format,
		"line", perr.Line,
		"error", perr.Err)
	r.Skipped = append(r.Skipped, perr)
	return nil
}
