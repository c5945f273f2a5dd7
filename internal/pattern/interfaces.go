// Package pattern assigns categories to transaction descriptions using ordered
// substring rules.
package pattern

import "github.com/Veraticus/tally/internal/model"

// Uncategorized is the category given to descriptions no rule matches.
const Uncategorized = "Uncategorized"

// Categorizer assigns exactly one category to a description.
type Categorizer interface {
	// Classify returns the category of the first matching rule, or Uncategorized.
	Classify(description string, rules []Rule) string
	// Explain reports which rule, if any, decided the category.
	Explain(description string, rules []Rule) Match
}

// Match records how a description was categorized.
type Match struct {
	Category  string
	Pattern   string
	RuleIndex int // Index into the rule list, or -1 when nothing matched
}

// Matched reports whether a rule decided the category.
func (m Match) Matched() bool {
	return m.RuleIndex >= 0
}

// Rule is an alias to the model.CategoryRule type for convenience.
type Rule = model.CategoryRule
