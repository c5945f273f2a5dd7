package statement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook writes rows to the first sheet of a new workbook and returns its bytes.
func workbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.String()
}

func TestExcelParser_Parse(t *testing.T) {
	book := workbook(t,
		[]any{"Posting_Date", "Narrative", "Transaction_Amount", "DR_CR", "CCY"},
		[]any{"15 Jan 2024", "UBER TRIP", -23.5, "Debit", "aed"},
		[]any{},
		[]any{"16 Jan 2024", "PAYROLL", "$2,500.00", "Credit"},
	)

	result, err := NewExcelParser().Parse(context.Background(), book, Options{NewID: PrefixedIDs("b")})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	first := result.Candidates[0]
	assert.Equal(t, "b-1", first.ID)
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "15 Jan 2024", first.Date)
	assert.Equal(t, "UBER TRIP", first.Description)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-23.5")), first.Amount.String())
	assert.Equal(t, "Debit", first.DeclaredType)
	assert.Equal(t, "AED", first.Currency)

	second := result.Candidates[1]
	assert.Equal(t, "b-2", second.ID)
	assert.Equal(t, 4, second.Line)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, "Credit", second.DeclaredType)
	assert.Empty(t, second.Currency)
}

func TestExcelParser_BadRows(t *testing.T) {
	book := workbook(t,
		[]any{"Date", "Description", "Amount"},
		[]any{"2024-01-01", "Coffee", -3},
		[]any{"2024-01-02", "Refund", "twelve"},
		[]any{"2024-01-03", "", -4},
		[]any{"2024-01-04", "Uber", "1e400"},
		[]any{"2024-01-05", "Tea", -2},
	)

	t.Run("abort", func(t *testing.T) {
		result, err := NewExcelParser().Parse(context.Background(), book, Options{})
		assert.Nil(t, result)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, FormatExcel, perr.Format)
		assert.Equal(t, 3, perr.Line)
		var amountErr *AmountParseError
		assert.ErrorAs(t, err, &amountErr)
	})

	t.Run("skip", func(t *testing.T) {
		result, err := NewExcelParser().Parse(context.Background(), book, Options{Policy: SkipInvalidRows})
		require.NoError(t, err)
		require.Len(t, result.Candidates, 2)
		assert.Equal(t, "Tea", result.Candidates[1].Description)

		require.Len(t, result.Skipped, 3)
		assert.Equal(t, []int{3, 4, 5}, []int{result.Skipped[0].Line, result.Skipped[1].Line, result.Skipped[2].Line})
		var rowErr *MalformedRowError
		require.ErrorAs(t, result.Skipped[1], &rowErr)
		assert.Equal(t, "missing description", rowErr.Reason)
		assert.ErrorIs(t, result.Skipped[2], errAmountExponent)
	})
}

func TestExcelParser_InvalidDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{name: "not a workbook", input: "PK not really a zip"},
		{name: "missing columns", input: workbook(t, []any{"When", "Details", "How much"}), message: "date, amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExcelParser().Parse(context.Background(), tt.input, Options{})
			require.ErrorIs(t, err, ErrInvalidDocument)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestExcelParser_EmptySheet(t *testing.T) {
	result, err := NewExcelParser().Parse(context.Background(), workbook(t), Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestRowFields(t *testing.T) {
	fields := rowFields([]string{"Amount", "", "amount", "Date"}, []string{"1", "x", "2"})
	assert.Equal(t, map[string]any{"Amount": "1", "amount": "2"}, fields)

	fields = rowFields([]string{"Amount", "Amount"}, []string{"1", "2"})
	assert.Equal(t, map[string]any{"Amount": "1"}, fields)
}
