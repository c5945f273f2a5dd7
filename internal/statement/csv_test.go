package statement

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCSV(t *testing.T, text string, opts Options) (*Result, error) {
	t.Helper()
	return NewCSVParser().Parse(context.Background(), text, opts)
}

func TestCSVParser_Parse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantDescs []string
		wantLines []int
	}{
		{
			name:      "header only",
			input:     "Date,Description,Amount",
			wantDescs: nil,
		},
		{
			name:      "empty input",
			input:     "",
			wantDescs: nil,
		},
		{
			name: "preserves row order",
			input: "Date,Description,Amount\n" +
				"2023-12-01,Uber Trip,-23.50\n" +
				"2023-12-02,Whole Foods Market,-88.10\n" +
				"2023-12-03,Payroll Deposit,2500.00",
			wantDescs: []string{"Uber Trip", "Whole Foods Market", "Payroll Deposit"},
			wantLines: []int{2, 3, 4},
		},
		{
			name:      "skips blank line between rows",
			input:     "Date,Description,Amount\n2023-12-01,A,1\n\n2023-12-02,B,2\n",
			wantDescs: []string{"A", "B"},
			wantLines: []int{2, 4},
		},
		{
			name:      "skips whitespace-only lines",
			input:     "Date,Description,Amount\n   \t\n2023-12-01,A,1\n",
			wantDescs: []string{"A"},
			wantLines: []int{3},
		},
		{
			name:      "handles CRLF line endings",
			input:     "Date,Description,Amount\r\n2023-12-01,Coffee,-4.25\r\n\r\n",
			wantDescs: []string{"Coffee"},
			wantLines: []int{2},
		},
		{
			name:      "header is discarded even when it looks like data",
			input:     "2023-11-30,Not A Header,-1.00\n2023-12-01,Real,-2.00",
			wantDescs: []string{"Real"},
			wantLines: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseCSV(t, tt.input, Options{})
			require.NoError(t, err)

			var descs []string
			var lines []int
			for _, c := range result.Candidates {
				descs = append(descs, c.Description)
				lines = append(lines, c.Line)
			}
			assert.Equal(t, tt.wantDescs, descs)
			assert.Equal(t, tt.wantLines, lines)
			assert.Empty(t, result.Skipped)
		})
	}
}

func TestCSVParser_RowCountPreserved(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 0; i < 250; i++ {
		b.WriteString("2024-01-01,Store,-1.00\n")
	}

	result, err := parseCSV(t, b.String(), Options{})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 250)
}

func TestCSVParser_Fields(t *testing.T) {
	result, err := parseCSV(t, "Date,Description,Amount\n  2023-12-01 ,  Shell Gas Station  , -45.00 \n", Options{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Equal(t, "2023-12-01", c.Date)
	assert.Equal(t, "Shell Gas Station", c.Description)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("-45")))
	assert.NotEmpty(t, c.ID)
}

func TestCSVParser_Amounts(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "-45.00", want: -45.0},
		{raw: "1200", want: 1200.0},
		{raw: "+12.5", want: 12.5},
		{raw: "-23.50", want: -23.5},
		{raw: "-88.10", want: -88.1},
		{raw: ".75", want: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			result, err := parseCSV(t, "Date,Description,Amount\n2024-01-01,X,"+tt.raw, Options{})
			require.NoError(t, err)
			require.Len(t, result.Candidates, 1)

			got, _ := result.Candidates[0].Amount.Float64()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVParser_DateIsOpaque(t *testing.T) {
	result, err := parseCSV(t, "Date,Description,Amount\n31/02/2024,X,1\nyesterday,Y,2", Options{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "31/02/2024", result.Candidates[0].Date)
	assert.Equal(t, "yesterday", result.Candidates[1].Date)
}

func TestCSVParser_AbortOnError(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		check    func(t *testing.T, err error)
	}{
		{
			name:     "too few fields",
			input:    "Date,Description,Amount\n2024-01-01,Coffee,-3\n2024-01-02,-5.00\n2024-01-03,Tea,-2",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				t.Helper()
				var rowErr *MalformedRowError
				require.ErrorAs(t, err, &rowErr)
				assert.Equal(t, 2, rowErr.Got)
				assert.Equal(t, 3, rowErr.Want)
			},
		},
		{
			name:     "comma inside description",
			input:    "Date,Description,Amount\n2024-01-01,Smith, John,-3",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				var rowErr *MalformedRowError
				require.ErrorAs(t, err, &rowErr)
				assert.Equal(t, 4, rowErr.Got)
			},
		},
		{
			name:     "amount is not a number",
			input:    "Date,Description,Amount\n2024-01-01,Coffee,abc",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				var amountErr *AmountParseError
				require.ErrorAs(t, err, &amountErr)
				assert.Equal(t, "abc", amountErr.Value)
			},
		},
		{
			name:     "empty amount",
			input:    "Date,Description,Amount\n2024-01-01,Coffee,",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				var amountErr *AmountParseError
				require.ErrorAs(t, err, &amountErr)
			},
		},
		{
			name:     "thousands separator is not accepted",
			input:    "Date,Description,Amount\n2024-01-01,Rent,1 200.00",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				var amountErr *AmountParseError
				require.ErrorAs(t, err, &amountErr)
			},
		},
		{
			name:     "exponent beyond float range",
			input:    "Date,Description,Amount\n2024-01-01,Uber,1e400",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				var amountErr *AmountParseError
				require.ErrorAs(t, err, &amountErr)
				assert.Equal(t, "1e400", amountErr.Value)
			},
		},
		{
			name:     "huge exponent",
			input:    "Date,Description,Amount\n2024-01-01,Uber,1e50000000",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorIs(t, err, errAmountExponent)
			},
		},
		{
			name:     "small upper-case exponent",
			input:    "Date,Description,Amount\n2024-01-01,Uber,1E5",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorIs(t, err, errAmountExponent)
			},
		},
		{
			name:     "too many digits",
			input:    "Date,Description,Amount\n2024-01-01,Uber,0." + strings.Repeat("0", 40) + "1",
			wantLine: 2,
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorIs(t, err, errAmountTooLong)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseCSV(t, tt.input, Options{Policy: AbortOnError})
			require.Error(t, err)
			assert.Nil(t, result)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantLine, perr.Line)
			assert.Equal(t, FormatCSV, perr.Format)
			tt.check(t, err)
		})
	}
}

func TestCSVParser_SkipInvalidRows(t *testing.T) {
	input := "Date,Description,Amount\n" +
		"2024-01-01,Coffee,-3\n" +
		"2024-01-02,broken\n" +
		"2024-01-03,Tea,n/a\n" +
		"2024-01-04,Bagel,-2.10\n"

	result, err := parseCSV(t, input, Options{Policy: SkipInvalidRows})
	require.NoError(t, err)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "Coffee", result.Candidates[0].Description)
	assert.Equal(t, "Bagel", result.Candidates[1].Description)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 3, result.Skipped[0].Line)
	assert.Equal(t, "2024-01-02,broken", result.Skipped[0].Raw)
	assert.Equal(t, 4, result.Skipped[1].Line)
}

func TestCSVParser_IDs(t *testing.T) {
	input := "Date,Description,Amount\n2024-01-01,A,1\n2024-01-02,B,2\n2024-01-03,C,3"

	t.Run("random ids are unique", func(t *testing.T) {
		result, err := parseCSV(t, input, Options{})
		require.NoError(t, err)

		seen := make(map[string]bool)
		for _, c := range result.Candidates {
			assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
		}
	})

	t.Run("prefixed ids", func(t *testing.T) {
		result, err := parseCSV(t, input, Options{NewID: PrefixedIDs("batch")})
		require.NoError(t, err)
		require.Len(t, result.Candidates, 3)
		assert.Equal(t, "batch-1", result.Candidates[0].ID)
		assert.Equal(t, "batch-3", result.Candidates[2].ID)
	})
}

func TestCSVParser_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVParser().Parse(ctx, "Date,Description,Amount\n2024-01-01,A,1", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, SkipInvalidRows, p)
	assert.Equal(t, "skip", p.String())

	p, err = ParseErrorPolicy("ABORT")
	require.NoError(t, err)
	assert.Equal(t, AbortOnError, p)

	_, err = ParseErrorPolicy("ignore")
	assert.Error(t, err)
}
