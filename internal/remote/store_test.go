package remote

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch(id string, uploadedAt time.Time, count int) (*model.Batch, []model.Transaction) {
	batch := &model.Batch{ID: id, Filename: id + ".csv", Format: "csv", SizeBytes: 100, RowCount: count, UploadedAt: uploadedAt}
	txns := make([]model.Transaction, count)
	for i := range txns {
		txns[i] = model.Transaction{
			ID:          fmt.Sprintf("%s-%d", id, i+1),
			Date:        "2024-01-01",
			Description: fmt.Sprintf("Shop %d", i+1),
			Amount:      -1.5 * float64(i+1),
			Type:        model.TypeDebit,
			Category:    "Uncategorized",
		}
	}
	return batch, txns
}

func rulePatterns(t *testing.T, s *SupabaseStore) []string {
	t.Helper()
	rules, err := s.ListRules(context.Background())
	require.NoError(t, err)
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Pattern
		assert.Equal(t, i, r.Position)
	}
	return out
}

func TestNewSupabaseStore_RequiresCredentials(t *testing.T) {
	_, err := NewSupabaseStore("", "")
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	for _, table := range []string{tableRules, tableUploads, tableTransactions} {
		assert.Contains(t, Schema(), "create table if not exists "+table)
	}
	assert.Contains(t, Schema(), "on delete cascade")
}

func TestMigrate_ChecksTables(t *testing.T) {
	store, fake := newTestStore(t)
	require.NoError(t, store.Migrate(context.Background()))

	fake.dropTable(tableUploads)
	err := store.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), tableUploads)
}

func TestRules(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, p := range []string{"a", "b", "c", "d"} {
		rule := &model.CategoryRule{Pattern: p, Category: strings.ToUpper(p)}
		require.NoError(t, store.AddRule(ctx, rule))
		assert.NotEmpty(t, rule.ID)
		ids = append(ids, rule.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, rulePatterns(t, store))

	require.NoError(t, store.MoveRule(ctx, ids[3], 0))
	assert.Equal(t, []string{"d", "a", "b", "c"}, rulePatterns(t, store))

	require.NoError(t, store.MoveRule(ctx, ids[3], 10))
	assert.Equal(t, []string{"a", "b", "c", "d"}, rulePatterns(t, store))

	require.NoError(t, store.DeleteRule(ctx, ids[1]))
	assert.Equal(t, []string{"a", "c", "d"}, rulePatterns(t, store))

	assert.ErrorIs(t, store.DeleteRule(ctx, ids[1]), common.ErrNotFound)
	assert.ErrorIs(t, store.MoveRule(ctx, "missing", 0), common.ErrNotFound)
	assert.Error(t, store.MoveRule(ctx, ids[0], -1))
	assert.Error(t, store.AddRule(ctx, &model.CategoryRule{Pattern: "", Category: "X"}))
}

func TestReplaceRules(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRule(ctx, &model.CategoryRule{Pattern: "old", Category: "Old"}))
	require.NoError(t, store.ReplaceRules(ctx, []model.CategoryRule{
		{Pattern: "gas station", Category: "Fuel"},
		{Pattern: "gas", Category: "Utilities"},
	}))
	assert.Equal(t, []string{"gas station", "gas"}, rulePatterns(t, store))

	require.NoError(t, store.ReplaceRules(ctx, nil))
	assert.Equal(t, 0, fake.count(tableRules))

	assert.Error(t, store.ReplaceRules(ctx, []model.CategoryRule{{Pattern: "x"}}))
}

func TestBatches(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older, olderTxns := testBatch("older", base, 2)
	newer, newerTxns := testBatch("newer", base.Add(time.Hour), 3)
	require.NoError(t, store.SaveBatch(ctx, older, olderTxns))
	require.NoError(t, store.SaveBatch(ctx, newer, newerTxns))

	batches, err := store.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "newer", batches[0].ID)
	assert.Equal(t, int64(100), batches[0].SizeBytes)

	got, err := store.GetBatch(ctx, "older")
	require.NoError(t, err)
	assert.True(t, base.Equal(got.UploadedAt))

	_, err = store.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	txns, err := store.GetTransactionsByBatch(ctx, "newer")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "newer-1", txns[0].ID)
	assert.Equal(t, "newer", txns[2].BatchID)
	assert.Equal(t, -4.5, txns[2].Amount)

	require.NoError(t, store.UpdateTransactionCategory(ctx, "newer-2", "Dining"))
	txns, err = store.GetTransactionsByBatch(ctx, "newer")
	require.NoError(t, err)
	assert.Equal(t, "Dining", txns[1].Category)
	assert.ErrorIs(t, store.UpdateTransactionCategory(ctx, "missing", "Dining"), common.ErrNotFound)

	require.NoError(t, store.DeleteBatch(ctx, "newer"))
	assert.Equal(t, 2, fake.count(tableTransactions))
	assert.ErrorIs(t, store.DeleteBatch(ctx, "newer"), common.ErrNotFound)
}

func TestSaveBatch_RemovesBatchWhenTransactionsFail(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	first, firstTxns := testBatch("first", time.Now(), 1)
	require.NoError(t, store.SaveBatch(ctx, first, firstTxns))

	second, secondTxns := testBatch("second", time.Now(), 2)
	secondTxns[1].ID = firstTxns[0].ID
	require.Error(t, store.SaveBatch(ctx, second, secondTxns))

	_, err := store.GetBatch(ctx, "second")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 1, fake.count(tableUploads))
}

func TestRead_RetriesDroppedConnections(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddRule(ctx, &model.CategoryRule{Pattern: "uber", Category: "Transport"}))

	fake.mu.Lock()
	fake.failNext = 1
	before := fake.requests
	fake.mu.Unlock()

	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.GreaterOrEqual(t, fake.requests-before, 2)
}

func TestRead_GivesUpAfterMaxAttempts(t *testing.T) {
	store, fake := newTestStore(t)
	fake.mu.Lock()
	fake.failNext = 100
	fake.mu.Unlock()

	_, err := store.ListBatches(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

func TestRead_DoesNotRetryRejections(t *testing.T) {
	store, fake := newTestStore(t)
	fake.dropTable(tableRules)

	_, err := store.ListRules(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.requests)
}
