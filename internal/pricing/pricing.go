// Package pricing computes cart totals. Every function is pure: the same
// lines and discount always produce the same money, and bad inputs are
// clamped rather than rejected.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourflorist/storefront/pkg/config"
)

var (
	zero       = decimal.Zero
	oneHundred = decimal.NewFromInt(100)
)

// Line is the slice of a cart the engine prices: a unit price and a
// quantity. Quantities below zero count as zero.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is a fully computed price breakdown for one cart snapshot.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	Shipping           decimal.Decimal `json:"shipping"`
	Tax                decimal.Decimal `json:"tax"`
	Discount           decimal.Decimal `json:"discount"`
	TotalAfterDiscount decimal.Decimal `json:"totalAfterDiscount"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
}

// Policy holds the storefront's pricing constants. Shipping is a flat fee
// charged whenever the cart is non-empty; tax applies to the pre-discount
// subtotal.
type Policy struct {
	shippingFlatFee decimal.Decimal
	taxRate         decimal.Decimal
}

// NewPolicy parses the configured pricing constants.
func NewPolicy(cfg config.PricingConfig) (Policy, error) {
	fee, err := decimal.NewFromString(cfg.ShippingFlatFee)
	if err != nil {
		return Policy{}, fmt.Errorf("parsing shipping flat fee %q: %w", cfg.ShippingFlatFee, err)
	}
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("parsing tax rate %q: %w", cfg.TaxRate, err)
	}
	if fee.IsNegative() {
		return Policy{}, fmt.Errorf("shipping flat fee must not be negative")
	}
	if rate.IsNegative() {
		return Policy{}, fmt.Errorf("tax rate must not be negative")
	}
	return Policy{shippingFlatFee: fee, taxRate: rate}, nil
}

// Subtotal sums unit price times quantity across all lines.
func (p Policy) Subtotal(lines []Line) decimal.Decimal {
	subtotal := zero
	for _, line := range lines {
		qty := line.Quantity
		if qty < 0 {
			qty = 0
		}
		price := line.UnitPrice
		if price.IsNegative() {
			price = zero
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return subtotal.Round(2)
}

// ShippingCost returns the flat fee for a non-empty cart and zero otherwise.
// A cart holding only zero-quantity lines still counts as non-empty; line
// removal is the cart's job, not the engine's.
func (p Policy) ShippingCost(lines []Line) decimal.Decimal {
	if len(lines) == 0 {
		return zero
	}
	return p.shippingFlatFee
}

// TaxAmount charges the tax rate on the pre-discount subtotal. Promotions
// never reduce the taxable base.
func (p Policy) TaxAmount(lines []Line) decimal.Decimal {
	return p.Subtotal(lines).Mul(p.taxRate).Round(2)
}

// DiscountAmount computes the promotion discount: the percentage of the
// subtotal, rounded half away from zero to whole currency units and floored
// at zero. Percentages are clamped to [0, 100].
func (p Policy) DiscountAmount(lines []Line, discountPercentage decimal.Decimal) decimal.Decimal {
	pct := clampPercentage(discountPercentage)
	if pct.IsZero() {
		return zero
	}
	discount := p.Subtotal(lines).Mul(pct).Div(oneHundred).Round(0)
	if discount.IsNegative() {
		return zero
	}
	return discount
}

// TotalAfterDiscount is the subtotal less the discount, floored at zero.
func (p Policy) TotalAfterDiscount(lines []Line, discountPercentage decimal.Decimal) decimal.Decimal {
	total := p.Subtotal(lines).Sub(p.DiscountAmount(lines, discountPercentage))
	if total.IsNegative() {
		return zero
	}
	return total
}

// GrandTotal is the discounted goods total plus shipping plus tax.
func (p Policy) GrandTotal(lines []Line, discountPercentage decimal.Decimal) decimal.Decimal {
	return p.TotalAfterDiscount(lines, discountPercentage).
		Add(p.ShippingCost(lines)).
		Add(p.TaxAmount(lines)).
		Round(2)
}

// Totals computes the full breakdown in one pass.
func (p Policy) Totals(lines []Line, discountPercentage decimal.Decimal) Totals {
	return Totals{
		Subtotal:           p.Subtotal(lines),
		Shipping:           p.ShippingCost(lines),
		Tax:                p.TaxAmount(lines),
		Discount:           p.DiscountAmount(lines, discountPercentage),
		TotalAfterDiscount: p.TotalAfterDiscount(lines, discountPercentage),
		GrandTotal:         p.GrandTotal(lines, discountPercentage),
	}
}

func clampPercentage(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return zero
	}
	if pct.GreaterThan(oneHundred) {
		return oneHundred
	}
	return pct
}
