package model

import "github.com/shopspring/decimal"

// CartLine 购物车行，数量恒 >= 1
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartTotals 购物车合计（派生值，不落库）
type CartTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// FreeShipping 是否免运费
func (t CartTotals) FreeShipping() bool { return t.Shipping.IsZero() }
