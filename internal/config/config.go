package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/ingest"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/statement"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config is the resolved application configuration.
type Config struct {
	DatabasePath string
	StoreBackend string
	SupabaseURL  string
	SupabaseKey  string
	RulesFile    string // Optional YAML rules used instead of the stored list
	Currency     string
	OnError      string
	MatchMode    string
	MaxFileSize  int64
	Concurrency  int
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "$HOME/.local/share/tally/tally.db")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("import.max_file_size", ingest.DefaultMaxFileSize)
	v.SetDefault("import.on_error", "skip")
	v.SetDefault("import.match_mode", "substring")
	v.SetDefault("import.concurrency", 4)
	v.SetDefault("import.currency", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env") into
// the environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load builds a validated Config from viper.
// SUPABASE_URL and SUPABASE_KEY are read directly when not configured.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		StoreBackend: strings.ToLower(strings.TrimSpace(v.GetString("store.backend"))),
		SupabaseURL:  v.GetString("supabase.url"),
		SupabaseKey:  v.GetString("supabase.key"),
		RulesFile:    ExpandPath(v.GetString("rules.file")),
		Currency:     strings.ToUpper(strings.TrimSpace(v.GetString("import.currency"))),
		OnError:      v.GetString("import.on_error"),
		MatchMode:    v.GetString("import.match_mode"),
		MaxFileSize:  v.GetInt64("import.max_file_size"),
		Concurrency:  v.GetInt("import.concurrency"),
	}

	if cfg.SupabaseURL == "" {
		cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	}
	if cfg.SupabaseKey == "" {
		cfg.SupabaseKey = os.Getenv("SUPABASE_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string
	missing := false

	switch c.StoreBackend {
	case BackendSQLite:
		if c.DatabasePath == "" {
			missing = true
			problems = append(problems, "database.path cannot be empty when using the sqlite backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" {
			missing = true
			problems = append(problems, "supabase.url is required when using the supabase backend")
		}
		if c.SupabaseKey == "" {
			missing = true
			problems = append(problems, "supabase.key is required when using the supabase backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store.backend %q: must be %s or %s", c.StoreBackend, BackendSQLite, BackendSupabase))
	}

	if _, err := statement.ParseErrorPolicy(c.OnError); err != nil {
		problems = append(problems, "import.on_error: "+err.Error())
	}
	if _, err := pattern.ParseMatchMode(c.MatchMode); err != nil {
		problems = append(problems, "import.match_mode: "+err.Error())
	}
	if c.MaxFileSize <= 0 {
		problems = append(problems, fmt.Sprintf("import.max_file_size must be positive, got %d", c.MaxFileSize))
	}
	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("import.concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Currency != "" && len(c.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("import.currency %q is not a 3-letter code", c.Currency))
	}

	if len(problems) == 0 {
		return nil
	}
	details := strings.Join(problems, "\n  - ")
	if missing {
		return fmt.Errorf("%w (%w):\n  - %s", common.ErrInvalidConfig, common.ErrMissingConfig, details)
	}
	return fmt.Errorf("%w:\n  - %s", common.ErrInvalidConfig, details)
}

// PipelineConfig converts the import settings for ingest.NewWithConfig.
func (c *Config) PipelineConfig() (ingest.Config, error) {
	policy, err := statement.ParseErrorPolicy(c.OnError)
	if err != nil {
		return ingest.Config{}, err
	}
	mode, err := pattern.ParseMatchMode(c.MatchMode)
	if err != nil {
		return ingest.Config{}, err
	}
	return ingest.Config{
		Currency:    c.Currency,
		MaxFileSize: c.MaxFileSize,
		Concurrency: c.Concurrency,
		Policy:      policy,
		MatchMode:   mode,
	}, nil
}
