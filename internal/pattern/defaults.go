package pattern

// DefaultRules returns the built-in rule set, most specific groups first.
// Callers get a fresh slice they may modify.
func DefaultRules() []Rule {
	defaults := []struct {
		category string
		patterns []string
	}{
		{"Transport", []string{"uber", "lyft", "taxi", "subway", "train", "bus"}},
		{"Groceries", []string{"walmart", "kroger", "safeway", "trader joe", "whole foods"}},
		{"Shopping", []string{"amazon", "target", "best buy"}},
		{"Entertainment", []string{"netflix", "spotify", "hulu", "disney+", "cinema", "movie"}},
		{"Dining", []string{"restaurant", "cafe", "starbucks", "mcdonald", "burger", "pizza"}},
		{"Utilities", []string{"utility", "electric", "water", "gas", "internet", "phone", "mobile"}},
		{"Housing", []string{"rent", "mortgage"}},
		{"Insurance", []string{"insurance"}},
		{"Healthcare", []string{"doctor", "hospital", "pharmacy"}},
		{"Income", []string{"salary", "deposit", "payroll", "interest", "dividend"}},
	}

	var rules []Rule
	for _, group := range defaults {
		for _, p := range group.patterns {
			rules = append(rules, Rule{Pattern: p, Category: group.category, Position: len(rules)})
		}
	}
	return rules
}
