// Package remote implements service.Store on a Supabase (PostgREST) project.
//
// PostgREST offers no multi-statement transactions, so writes that touch
// several rows are issued in sequence and compensated on failure where
// possible. Reads are retried on network errors.
package remote

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/service"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// Table names, as created by schema.sql.
const (
	tableRules        = "category_rules"
	tableUploads      = "file_uploads"
	tableTransactions = "transactions"
)

// Postgres SQLSTATE reported by PostgREST for primary key conflicts.
const uniqueViolation = "23505"

//go:embed schema.sql
var schemaSQL string

// Schema returns the SQL that creates the tables this store expects.
func Schema() string {
	return schemaSQL
}

var _ service.Store = (*SupabaseStore)(nil)

// SupabaseStore implements service.Store through the Supabase REST API.
type SupabaseStore struct {
	client *supabase.Client
	now    func() time.Time
	retry  common.RetryOptions
}

// NewSupabaseStore connects to the project at url with an API key.
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}, nil
}

// Close implements service.Store. The REST client holds no connection.
func (s *SupabaseStore) Close() error {
	return nil
}

// Migrate checks that every table exists. Schema changes must be applied
// out of band; see Schema.
func (s *SupabaseStore) Migrate(ctx context.Context) error {
	for _, table := range []string{tableRules, tableUploads, tableTransactions} {
		err := s.read(ctx, func() ([]byte, error) {
			data, _, err := s.client.From(table).Select("id", "", false).Limit(1, "").Execute()
			return data, err
		}, nil)
		if err != nil {
			return fmt.Errorf("table %s is not available (apply the supabase schema first): %w", table, err)
		}
	}
	return nil
}

// read runs a query with retries and decodes the JSON response into out (when non-nil).
func (s *SupabaseStore) read(ctx context.Context, query func() ([]byte, error), out any) error {
	return common.WithRetry(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		data, err := query()
		if err != nil {
			return classify(err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err), Retryable: false}
		}
		return nil
	}, s.retry)
}

// write runs a mutating query once and decodes the returned representation into out.
func (s *SupabaseStore) write(ctx context.Context, query func() ([]byte, error), out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := query()
	if err != nil {
		return classify(err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// classify marks transport failures as retryable and everything else (PostgREST
// rejections) as final.
func classify(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	if strings.Contains(err.Error(), "("+uniqueViolation+")") {
		err = fmt.Errorf("%w: %w", common.ErrDuplicateEntry, err)
	}
	return &common.RetryableError{Err: err, Retryable: false}
}

func ascending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: true}
}

func descending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: false}
}
