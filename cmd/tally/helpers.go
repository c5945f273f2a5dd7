package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/remote"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/spf13/viper"
)

// loadConfig resolves the configuration from viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("configuration problem (see $HOME/.config/tally/config.yaml or TALLY_* variables)", err)
	}
	return cfg, nil
}

// initStore opens the configured backend and brings it up to date.
func initStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	var store service.Store

	switch cfg.StoreBackend {
	case config.BackendSupabase:
		remoteStore, err := remote.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, err
		}
		store = remoteStore
	default:
		sqliteStore, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	}

	if err := store.Migrate(ctx); err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStore(store service.Store) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// loadRules returns the rules from rulesFile when set, otherwise the stored list.
func loadRules(ctx context.Context, store service.RuleStore, rulesFile string) ([]model.CategoryRule, error) {
	if rulesFile != "" {
		rules, err := pattern.LoadRulesFile(config.ExpandPath(rulesFile))
		if err != nil {
			return nil, err
		}
		slog.Debug("Using rules file", "path", rulesFile, "rules", len(rules))
		return rules, nil
	}

	rules, err := store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}

// expandFiles resolves glob patterns; patterns that match nothing are kept
// when they name an existing file and warned about otherwise.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(p); statErr != nil {
				slog.Warn("No files found matching pattern", "pattern", p)
				continue
			}
			matches = []string{p}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
