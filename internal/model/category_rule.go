// Package model defines the core data structures shared across tally.
package model

import "time"

// CategoryRule maps a description substring to a category label.
// Rules are evaluated in list order; the first match wins.
type CategoryRule struct {
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	ID        string    `json:"id,omitempty" yaml:"-"`
	Pattern   string    `json:"pattern" yaml:"pattern"`
	Category  string    `json:"category" yaml:"category"`
	Position  int       `json:"position" yaml:"-"`
}
