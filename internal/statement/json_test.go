package statement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "top-level array",
			input: `[{"date":"2024-01-15","description":"Coffee Shop","amount":-5.50},{"date":"2024-01-16","description":"Salary","amount":3000}]`,
			want:  []string{"Coffee Shop", "Salary"},
		},
		{
			name:  "transactions wrapper",
			input: `{"account":"x","transactions":[{"date":"2024-01-15","description":"Coffee Shop","amount":"-5.50"}]}`,
			want:  []string{"Coffee Shop"},
		},
		{
			name:  "single object",
			input: `{"Date":"2024-01-15","Details":"Kiosk","Amount":"-1.00"}`,
			want:  []string{"Kiosk"},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewJSONParser().Parse(context.Background(), tt.input, Options{})
			require.NoError(t, err)

			var got []string
			for _, c := range result.Candidates {
				got = append(got, c.Description)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONParser_FieldAliases(t *testing.T) {
	input := `[{"Posting_Date":"15 Jan 2024","narrative":"ATM WITHDRAWAL","transaction_amount":"$1,200.00","dr_cr":"Debit","ccy":"aed"}]`

	result, err := NewJSONParser().Parse(context.Background(), input, Options{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Equal(t, "15 Jan 2024", c.Date)
	assert.Equal(t, "ATM WITHDRAWAL", c.Description)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("1200")))
	assert.Equal(t, "Debit", c.DeclaredType)
	assert.Equal(t, "AED", c.Currency)
	assert.Equal(t, 1, c.Line)
}

func TestJSONParser_BadRecords(t *testing.T) {
	input := `[
		{"date":"2024-01-01","description":"Good","amount":1},
		{"date":"2024-01-02","amount":2},
		{"date":"2024-01-03","description":"Bad amount","amount":"twelve"},
		"not an object",
		{"date":"2024-01-05","description":"Also good","amount":"-3.10"}
	]`

	t.Run("abort", func(t *testing.T) {
		_, err := NewJSONParser().Parse(context.Background(), input, Options{})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 2, perr.Line)

		var rowErr *MalformedRowError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, "missing description", rowErr.Reason)
	})

	t.Run("skip", func(t *testing.T) {
		result, err := NewJSONParser().Parse(context.Background(), input, Options{Policy: SkipInvalidRows})
		require.NoError(t, err)
		require.Len(t, result.Candidates, 2)
		assert.Equal(t, "Also good", result.Candidates[1].Description)

		require.Len(t, result.Skipped, 3)
		var amountErr *AmountParseError
		assert.ErrorAs(t, result.Skipped[1], &amountErr)
		assert.Equal(t, 4, result.Skipped[2].Line)
	})
}

func TestJSONParser_InvalidDocument(t *testing.T) {
	for _, input := range []string{``, `{`, `42`, `{"transactions": "nope"}`} {
		_, err := NewJSONParser().Parse(context.Background(), input, Options{})
		assert.ErrorIs(t, err, ErrInvalidDocument, "input %q", input)
	}
}

func TestJSONParser_RejectsExponentAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{name: "string beyond float range", amount: `"1e400"`},
		{name: "number beyond float range", amount: `1e400`},
		{name: "huge exponent", amount: `"1e50000000"`},
		{name: "huge exponent number", amount: `1e50000000`},
		{name: "upper-case exponent", amount: `1E5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `[{"date":"2024-01-01","description":"Uber","amount":` + tt.amount + `}]`
			result, err := NewJSONParser().Parse(context.Background(), input, Options{})
			assert.Nil(t, result)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 1, perr.Line)
			var amountErr *AmountParseError
			require.ErrorAs(t, err, &amountErr)
			assert.ErrorIs(t, err, errAmountExponent)
		})
	}
}

func TestLookup_CaseCollision(t *testing.T) {
	fields := map[string]any{
		"amount ": "1",
		"AMOUNT":  "2",
		"Amount":  "3",
		"aMOUNT":  "4",
	}

	for range 20 {
		v, ok := lookup(fields, "amount")
		require.True(t, ok)
		assert.Equal(t, "2", v, "lexically first matching key wins")
	}

	v, ok := lookup(map[string]any{"AMOUNT": "2", "amount": "5"}, "amount")
	require.True(t, ok)
	assert.Equal(t, "5", v)
}
