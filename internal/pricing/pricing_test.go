package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourflorist/storefront/pkg/config"
)

func testPolicy(t *testing.T) Policy {
	t.Helper()
	policy, err := NewPolicy(config.PricingConfig{
		ShippingFlatFee: "9.99",
		TaxRate:         "0.08",
	})
	require.NoError(t, err)
	return policy
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func TestNewPolicyRejectsBadConstants(t *testing.T) {
	_, err := NewPolicy(config.PricingConfig{ShippingFlatFee: "nope", TaxRate: "0.08"})
	assert.Error(t, err)

	_, err = NewPolicy(config.PricingConfig{ShippingFlatFee: "9.99", TaxRate: "-0.01"})
	assert.Error(t, err)
}

func TestTotalsWithoutPromotion(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{{UnitPrice: dec(t, "20.00"), Quantity: 2}}

	totals := policy.Totals(lines, decimal.Zero)

	assert.True(t, totals.Subtotal.Equal(dec(t, "40.00")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(dec(t, "3.20")), "tax %s", totals.Tax)
	assert.True(t, totals.Shipping.Equal(dec(t, "9.99")), "shipping %s", totals.Shipping)
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.GrandTotal.Equal(dec(t, "53.19")), "grand total %s", totals.GrandTotal)
}

func TestTotalsWithTenPercentPromotion(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{{UnitPrice: dec(t, "20.00"), Quantity: 2}}

	totals := policy.Totals(lines, dec(t, "10"))

	assert.True(t, totals.Discount.Equal(dec(t, "4")), "discount %s", totals.Discount)
	assert.True(t, totals.TotalAfterDiscount.Equal(dec(t, "36.00")), "after discount %s", totals.TotalAfterDiscount)
	// Tax stays on the pre-discount subtotal.
	assert.True(t, totals.Tax.Equal(dec(t, "3.20")), "tax %s", totals.Tax)
	assert.True(t, totals.GrandTotal.Equal(dec(t, "49.19")), "grand total %s", totals.GrandTotal)
}

func TestEmptyCartSkipsShipping(t *testing.T) {
	policy := testPolicy(t)

	totals := policy.Totals(nil, decimal.Zero)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestDiscountRoundsHalfAwayFromZero(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{{UnitPrice: dec(t, "15.00"), Quantity: 1}}

	// 15.00 * 10% = 1.50 rounds up to 2.
	discount := policy.DiscountAmount(lines, dec(t, "10"))
	assert.True(t, discount.Equal(dec(t, "2")), "discount %s", discount)

	// 14.00 * 10% = 1.40 rounds down to 1.
	discount = policy.DiscountAmount([]Line{{UnitPrice: dec(t, "14.00"), Quantity: 1}}, dec(t, "10"))
	assert.True(t, discount.Equal(dec(t, "1")), "discount %s", discount)
}

func TestDiscountPercentageClamped(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{{UnitPrice: dec(t, "10.00"), Quantity: 1}}

	assert.True(t, policy.DiscountAmount(lines, dec(t, "-5")).IsZero())

	// 150% clamps to 100%, which empties the goods total but never below zero.
	discount := policy.DiscountAmount(lines, dec(t, "150"))
	assert.True(t, discount.Equal(dec(t, "10")), "discount %s", discount)
	assert.True(t, policy.TotalAfterDiscount(lines, dec(t, "150")).IsZero())
}

func TestSubtotalIgnoresLineOrder(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{
		{UnitPrice: dec(t, "20.00"), Quantity: 2},
		{UnitPrice: dec(t, "3.50"), Quantity: 1},
		{UnitPrice: dec(t, "0.99"), Quantity: 5},
	}
	reversed := []Line{lines[2], lines[1], lines[0]}

	assert.True(t, policy.Subtotal(lines).Equal(policy.Subtotal(reversed)))
	assert.True(t, policy.Subtotal(lines).Equal(dec(t, "48.45")))
}

func TestNegativeQuantitiesAndPricesClampToZero(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{
		{UnitPrice: dec(t, "12.00"), Quantity: -3},
		{UnitPrice: dec(t, "-4.00"), Quantity: 2},
		{UnitPrice: dec(t, "5.00"), Quantity: 1},
	}

	assert.True(t, policy.Subtotal(lines).Equal(dec(t, "5.00")))
}

func TestGrandTotalNeverNegative(t *testing.T) {
	policy := testPolicy(t)
	lines := []Line{{UnitPrice: dec(t, "1.00"), Quantity: 1}}

	total := policy.GrandTotal(lines, dec(t, "100"))
	// Goods are free but shipping and tax still apply.
	assert.True(t, total.Equal(dec(t, "10.07")), "grand total %s", total)
}
