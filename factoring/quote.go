package factoring

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yourusername/invoice-factoring/ledger"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Cost is what an investor pays for amount tokens at pricePerToken.
func Cost(amount, pricePerToken int64) (int64, error) {
	if amount <= 0 || pricePerToken <= 0 {
		return 0, fmt.Errorf("%w: amount and price must be positive", ledger.ErrInvalidArgument)
	}
	cost := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(pricePerToken))
	if cost.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: cost of %d tokens at %d overflows", ledger.ErrInvalidArgument, amount, pricePerToken)
	}
	return cost.IntPart(), nil
}

// DiscountPercent renders a basis-point rate as a percentage, 250 -> "2.5".
func DiscountPercent(rate int64) string {
	return decimal.New(rate, -2).String()
}
