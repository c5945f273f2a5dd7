package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule is wrapped by every rule validation failure.
var ErrInvalidRule = errors.New("invalid category rule")

// ValidateRule checks a single rule before it is stored.
func ValidateRule(rule Rule) error {
	if strings.TrimSpace(rule.Pattern) == "" {
		return fmt.Errorf("%w: pattern cannot be empty", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Category) == "" {
		return fmt.Errorf("%w: category cannot be empty for pattern %q", ErrInvalidRule, rule.Pattern)
	}
	if strings.EqualFold(strings.TrimSpace(rule.Category), Uncategorized) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidRule, Uncategorized)
	}
	return nil
}

// ValidateRules checks every rule and reports all failures together.
func ValidateRules(rules []Rule) error {
	var errs []error
	for i, rule := range rules {
		if err := ValidateRule(rule); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// Shadow describes a rule that can never win because an earlier rule always matches first.
type Shadow struct {
	Rule     Rule
	By       Rule
	Index    int
	ByIndex  int
	Conflict bool // The shadowing rule assigns a different category
}

// FindShadowed lists rules made unreachable by an earlier, more general pattern.
// With substring matching "gas" shadows "gas station"; put the longer pattern first.
func (c *Classifier) FindShadowed(rules []Rule) []Shadow {
	var shadows []Shadow
	for j := 1; j < len(rules); j++ {
		later := strings.ToLower(rules[j].Pattern)
		for i := 0; i < j; i++ {
			if !c.matches(later, strings.ToLower(rules[i].Pattern)) {
				continue
			}
			shadows = append(shadows, Shadow{
				Rule:     rules[j],
				Index:    j,
				By:       rules[i],
				ByIndex:  i,
				Conflict: rules[i].Category != rules[j].Category,
			})
			break
		}
	}
	return shadows
}
