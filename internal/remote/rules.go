package remote

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/google/uuid"
)

// ListRules implements service.RuleStore.
func (s *SupabaseStore) ListRules(ctx context.Context) ([]model.CategoryRule, error) {
	var rules []model.CategoryRule
	err := s.read(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableRules).
			Select("*", "", false).
			Order("position", ascending()).
			Execute()
		return data, err
	}, &rules)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// AddRule implements service.RuleStore.
func (s *SupabaseStore) AddRule(ctx context.Context, rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := pattern.ValidateRule(*rule); err != nil {
		return err
	}

	var last []model.CategoryRule
	err := s.read(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableRules).
			Select("position", "", false).
			Order("position", descending()).
			Limit(1, "").
			Execute()
		return data, err
	}, &last)
	if err != nil {
		return fmt.Errorf("failed to find next position: %w", err)
	}

	row := model.CategoryRule{
		ID:        uuid.NewString(),
		Pattern:   rule.Pattern,
		Category:  rule.Category,
		CreatedAt: s.now(),
	}
	if len(last) > 0 {
		row.Position = last[0].Position + 1
	}

	err = s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableRules).Insert(row, false, "", "minimal", "").Execute()
		return data, err
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	*rule = row
	return nil
}

// DeleteRule implements service.RuleStore.
func (s *SupabaseStore) DeleteRule(ctx context.Context, id string) error {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return err
	}

	index := indexOfRule(rules, id)
	if index < 0 {
		return fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
	}

	err = s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableRules).Delete("minimal", "").Eq("id", id).Execute()
		return data, err
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	remaining := append(rules[:index:index], rules[index+1:]...)
	return s.renumber(ctx, remaining)
}

// MoveRule implements service.RuleStore.
func (s *SupabaseStore) MoveRule(ctx context.Context, id string, position int) error {
	if position < 0 {
		return fmt.Errorf("invalid rule position: %d", position)
	}

	rules, err := s.ListRules(ctx)
	if err != nil {
		return err
	}

	index := indexOfRule(rules, id)
	if index < 0 {
		return fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
	}
	if position > len(rules)-1 {
		position = len(rules) - 1
	}

	moved := rules[index]
	reordered := make([]model.CategoryRule, 0, len(rules))
	reordered = append(reordered, rules[:index]...)
	reordered = append(reordered, rules[index+1:]...)
	reordered = append(reordered[:position], append([]model.CategoryRule{moved}, reordered[position:]...)...)

	return s.renumber(ctx, reordered)
}

// ReplaceRules implements service.RuleStore.
func (s *SupabaseStore) ReplaceRules(ctx context.Context, rules []model.CategoryRule) error {
	if err := pattern.ValidateRules(rules); err != nil {
		return err
	}

	err := s.write(ctx, func() ([]byte, error) {
		// PostgREST refuses unfiltered deletes.
		data, _, err := s.client.From(tableRules).Delete("minimal", "").Neq("id", "").Execute()
		return data, err
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}

	if len(rules) == 0 {
		return nil
	}

	now := s.now()
	rows := make([]model.CategoryRule, len(rules))
	for i, r := range rules {
		rows[i] = model.CategoryRule{
			ID:        uuid.NewString(),
			Pattern:   r.Pattern,
			Category:  r.Category,
			Position:  i,
			CreatedAt: now,
		}
	}

	err = s.write(ctx, func() ([]byte, error) {
		data, _, err := s.client.From(tableRules).Insert(rows, false, "", "minimal", "").Execute()
		return data, err
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert rules: %w", err)
	}
	return nil
}

// renumber writes dense positions for rules whose stored position is stale.
func (s *SupabaseStore) renumber(ctx context.Context, rules []model.CategoryRule) error {
	for i, rule := range rules {
		if rule.Position == i {
			continue
		}
		update := map[string]int{"position": i}
		err := s.write(ctx, func() ([]byte, error) {
			data, _, err := s.client.From(tableRules).Update(update, "minimal", "").Eq("id", rule.ID).Execute()
			return data, err
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to update position of rule %s: %w", rule.ID, err)
		}
	}
	return nil
}

func indexOfRule(rules []model.CategoryRule, id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}
