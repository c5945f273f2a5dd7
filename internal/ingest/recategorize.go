package ingest

import (
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
)

// Change is a stored transaction whose category differs under the current rules.
type Change struct {
	Transaction model.Transaction // Carries the new category
	From        string
}

// Recategorize reruns the classifier over txns and returns only the rows whose
// category changes. The input slice is not modified.
func (p *Pipeline) Recategorize(txns []model.Transaction, rules []pattern.Rule) []Change {
	var changes []Change
	for _, txn := range txns {
		category := p.classifier.Classify(txn.Description, rules)
		if category == txn.Category {
			continue
		}
		from := txn.Category
		txn.Category = category
		changes = append(changes, Change{Transaction: txn, From: from})
	}
	return changes
}
