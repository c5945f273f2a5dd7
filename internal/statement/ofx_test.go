package statement

import (
	"context"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>POS PURCHASE Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>2500.00
<FITID>2024012501
<NAME>ACME PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestOFXParser_Parse(t *testing.T) {
	result, err := NewOFXParser().Parse(context.Background(), sampleBankOFX, Options{NewID: PrefixedIDs("ofx")})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 3)

	first := result.Candidates[0]
	assert.Equal(t, "ofx-1", first.ID)
	assert.Equal(t, "2024-01-15", first.Date)
	assert.Equal(t, "STARBUCKS STORE #1234", first.Description)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-25.5")))
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, "2024011501", first.Reference)
	assert.Equal(t, "DEBIT", first.DeclaredType)
	assert.Equal(t, 1, first.Line)

	assert.Equal(t, "Whole Foods Market", result.Candidates[1].Description)

	payroll := result.Candidates[2]
	assert.True(t, payroll.Amount.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, "DIRECTDEP", payroll.DeclaredType)
}

func TestOFXParser_InvalidDocument(t *testing.T) {
	for _, input := range []string{"", "not valid OFX"} {
		_, err := NewOFXParser().Parse(context.Background(), input, Options{})
		assert.ErrorIs(t, err, ErrInvalidDocument)
	}
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		name string
		tx   ofxgo.Transaction
		want string
	}{
		{
			name: "remove POS prefix",
			tx:   ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"},
			want: "STARBUCKS",
		},
		{
			name: "remove DEBIT CARD prefix",
			tx:   ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"},
			want: "WHOLE FOODS",
		},
		{
			name: "strip leading posting date",
			tx:   ofxgo.Transaction{Name: "01/15 NETFLIX.COM"},
			want: "NETFLIX.COM",
		},
		{
			name: "trim whitespace",
			tx:   ofxgo.Transaction{Name: "  AMAZON.COM  "},
			want: "AMAZON.COM",
		},
		{
			name: "memo replaces generic name",
			tx:   ofxgo.Transaction{Name: "DEBIT", Memo: "SPOTIFY USA"},
			want: "SPOTIFY USA",
		},
		{
			name: "payee wins",
			tx:   ofxgo.Transaction{Name: "SQ *CAFE", Payee: &ofxgo.Payee{Name: "Blue Bottle Cafe"}},
			want: "Blue Bottle Cafe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMerchantName(tt.tx))
		})
	}
}
