package cart

import (
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// Pricing holds the tax and shipping rules applied to a cart.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal // inclusive
	FlatShipping          decimal.Decimal
}

// DefaultPricing is 7% tax, free shipping from $75, otherwise $6.50.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.07"),
		FreeShippingThreshold: decimal.NewFromInt(75),
		FlatShipping:          decimal.RequireFromString("6.50"),
	}
}

// NewPricing builds pricing from plain config values.
func NewPricing(taxRate, freeShippingThreshold, flatShipping float64) Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		FlatShipping:          decimal.NewFromFloat(flatShipping),
	}
}

// Totals derives tax, shipping and grand total from a subtotal.
// Tax is rounded half-up to cents.
func (p Pricing) Totals(subtotal decimal.Decimal, itemCount int) model.CartTotals {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.FlatShipping.Round(2)
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return model.CartTotals{
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     subtotal.Add(tax).Add(shipping),
		ItemCount: itemCount,
	}
}
