package commission

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/velora/velora-backend/pkg/errors"
)

// DefaultRate applies when a capture request carries no explicit rate.
var DefaultRate = decimal.NewFromFloat(0.07)

var one = decimal.NewFromInt(1)

// Split is the platform-fee/store-payout division of a total amount.
type Split struct {
	Commission decimal.Decimal
	Store      decimal.Decimal
}

// Compute divides totalAmount by the given rate. The commission half is
// rounded to currency precision; the store half is the exact remainder, so
// Commission + Store always equals totalAmount.
func Compute(totalAmount, rate decimal.Decimal) (Split, error) {
	if totalAmount.IsNegative() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").
			WithDetails(map[string]any{"total_amount": totalAmount.String()})
	}
	if rate.IsNegative() || rate.GreaterThan(one) {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must lie between 0 and 1").
			WithDetails(map[string]any{"rate": rate.String()})
	}

	commission := totalAmount.Mul(rate).Round(2)
	return Split{
		Commission: commission,
		Store:      totalAmount.Sub(commission),
	}, nil
}
