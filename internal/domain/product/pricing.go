package product

import "github.com/shopspring/decimal"

// PriceScale is the number of fractional digits kept in derived prices.
const PriceScale = 2

// Base price bounds. MaxPriceDigits limits fractional digits of the base price.
const (
	MaxPriceDigits = 6
	maxPriceExp    = 9
	minPriceExp    = -18
)

// MaxPrice is the largest accepted base price.
var MaxPrice = decimal.New(1, maxPriceExp)

// CheckPrice returns ErrPriceOutOfRange unless price is positive, at most
// MaxPrice and has no more than MaxPriceDigits significant fractional
// digits. The exponent is checked first so values like 1e50000000 are
// rejected without being expanded.
func CheckPrice(price decimal.Decimal) error {
	exp := price.Exponent()
	switch {
	case !price.IsPositive():
		return ErrPriceOutOfRange
	case exp > maxPriceExp || exp < minPriceExp:
		return ErrPriceOutOfRange
	case price.GreaterThan(MaxPrice):
		return ErrPriceOutOfRange
	case exp < -MaxPriceDigits && !price.Equal(price.Truncate(MaxPriceDigits)):
		return ErrPriceOutOfRange
	}
	return nil
}

// ConvertPrice multiplies price by rate and rounds the result toward positive
// infinity at PriceScale digits, so 115.551 becomes 115.56.
func ConvertPrice(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).RoundCeil(PriceScale)
}
