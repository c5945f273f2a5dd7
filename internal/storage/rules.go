package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/google/uuid"
)

// ListRules returns all category rules in position order.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern, category, position, created_at
		FROM category_rules
		ORDER BY position ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		var rule model.CategoryRule
		if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.Category, &rule.Position, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// AddRule appends a rule after the current last rule.
func (s *SQLiteStorage) AddRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position) + 1, 0) FROM category_rules").Scan(&next); err != nil {
			return fmt.Errorf("failed to find next position: %w", err)
		}

		id := uuid.NewString()
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO category_rules (id, pattern, category, position, created_at) VALUES (?, ?, ?, ?, ?)",
			id, rule.Pattern, rule.Category, next, now,
		); err != nil {
			return fmt.Errorf("failed to insert rule: %w", translateError(err))
		}

		rule.ID = id
		rule.Position = next
		rule.CreatedAt = now
		return nil
	})
}

// DeleteRule removes a rule and shifts later rules up by one.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		position, err := rulePosition(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM category_rules WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE category_rules SET position = position - 1 WHERE position > ?", position); err != nil {
			return fmt.Errorf("failed to renumber rules: %w", err)
		}
		return nil
	})
}

// MoveRule moves a rule to position, clamped to the end of the list.
func (s *SQLiteStorage) MoveRule(ctx context.Context, id string, position int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if position < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := rulePosition(ctx, tx, id)
		if err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM category_rules").Scan(&count); err != nil {
			return fmt.Errorf("failed to count rules: %w", err)
		}
		if position > count-1 {
			position = count - 1
		}
		if position == current {
			return nil
		}

		var shift string
		var args []any
		if position < current {
			shift = "UPDATE category_rules SET position = position + 1 WHERE position >= ? AND position < ?"
			args = []any{position, current}
		} else {
			shift = "UPDATE category_rules SET position = position - 1 WHERE position > ? AND position <= ?"
			args = []any{current, position}
		}
		if _, err := tx.ExecContext(ctx, shift, args...); err != nil {
			return fmt.Errorf("failed to shift rules: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "UPDATE category_rules SET position = ? WHERE id = ?", position, id); err != nil {
			return fmt.Errorf("failed to move rule: %w", err)
		}
		return nil
	})
}

// ReplaceRules swaps the stored list for rules, keeping their order.
func (s *SQLiteStorage) ReplaceRules(ctx context.Context, rules []model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range rules {
		if err := validateRule(&rules[i]); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM category_rules"); err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO category_rules (id, pattern, category, position, created_at) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().UTC()
		for i, rule := range rules {
			if _, err := stmt.ExecContext(ctx, uuid.NewString(), rule.Pattern, rule.Category, i, now); err != nil {
				return fmt.Errorf("failed to insert rule %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func rulePosition(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var position int
	err := tx.QueryRowContext(ctx, "SELECT position FROM category_rules WHERE id = ?", id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("rule %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rule: %w", err)
	}
	return position, nil
}
