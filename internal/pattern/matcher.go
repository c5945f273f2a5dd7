package pattern

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatchMode selects how a rule pattern must appear in a description.
type MatchMode int

const (
	// Substring matches the pattern anywhere, so "gas" matches "Vegas".
	Substring MatchMode = iota
	// WordBoundary requires the pattern not to touch letters or digits on either side.
	WordBoundary
)

func (m MatchMode) String() string {
	if m == WordBoundary {
		return "word"
	}
	return "substring"
}

// ParseMatchMode reads a match mode name ("substring" or "word").
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "substring", "":
		return Substring, nil
	case "word":
		return WordBoundary, nil
	default:
		return Substring, fmt.Errorf("unknown match mode %q (want substring or word)", s)
	}
}

// Classifier implements Categorizer. The zero value matches substrings.
type Classifier struct {
	Mode MatchMode
}

// NewClassifier creates a classifier with the given match mode.
func NewClassifier(mode MatchMode) *Classifier {
	return &Classifier{Mode: mode}
}

// Classify returns the category of the first rule whose pattern occurs in the
// description, ignoring case. Rule order is the only precedence.
func (c *Classifier) Classify(description string, rules []Rule) string {
	return c.Explain(description, rules).Category
}

// Explain implements Categorizer.
func (c *Classifier) Explain(description string, rules []Rule) Match {
	folded := strings.ToLower(description)

	for i, rule := range rules {
		if c.matches(folded, strings.ToLower(rule.Pattern)) {
			return Match{Category: rule.Category, Pattern: rule.Pattern, RuleIndex: i}
		}
	}

	return Match{Category: Uncategorized, RuleIndex: -1}
}

// matches expects both arguments already case-folded. An empty pattern matches everything.
func (c *Classifier) matches(description, pattern string) bool {
	if c.Mode != WordBoundary || pattern == "" {
		return strings.Contains(description, pattern)
	}

	for offset := 0; offset <= len(description)-len(pattern); {
		idx := strings.Index(description[offset:], pattern)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(pattern)
		if boundedAt(description, pattern, start, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(description[start:])
		offset = start + size
	}
	return false
}

// boundedAt checks the characters around description[start:end]. A pattern edge
// that is itself punctuation needs no boundary.
func boundedAt(description, pattern string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(pattern)
	if isWordRune(first) && start > 0 {
		before, _ := utf8.DecodeLastRuneInString(description[:start])
		if isWordRune(before) {
			return false
		}
	}

	last, _ := utf8.DecodeLastRuneInString(pattern)
	if isWordRune(last) && end < len(description) {
		after, _ := utf8.DecodeRuneInString(description[end:])
		if isWordRune(after) {
			return false
		}
	}

	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
