package statement

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountLength bounds the digits an amount may carry. Anything longer is
// not a statement amount and would make the float conversion expensive.
const maxAmountLength = 32

var (
	errAmountExponent = errors.New("exponent notation is not accepted")
	errAmountTooLong  = errors.New("too many digits")
	errAmountRange    = errors.New("out of range")
)

// parseAmount reads a locale-invariant decimal with an optional leading sign.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := parseDecimal(raw)
	if err != nil {
		return decimal.Decimal{}, &AmountParseError{Value: raw, Err: err}
	}
	return d, nil
}

// parseLooseAmount also accepts thousands separators and a dollar sign.
func parseLooseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(raw))
	d, err := parseDecimal(cleaned)
	if err != nil {
		return decimal.Decimal{}, &AmountParseError{Value: raw, Err: err}
	}
	return d, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if strings.ContainsAny(s, "eE") {
		return decimal.Decimal{}, errAmountExponent
	}
	if len(s) > maxAmountLength {
		return decimal.Decimal{}, errAmountTooLong
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if f, _ := d.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, errAmountRange
	}
	return d, nil
}
