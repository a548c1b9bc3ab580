package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// MaxLineQuantity caps a single line.
const MaxLineQuantity = 999

var (
	// ErrUnknownProduct 与 catalog 共用同一个哨兵
	ErrUnknownProduct  = catalog.ErrUnknownProduct
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Ledger is one shopper's cart: product id -> quantity, in insertion order.
// It is owned by a single session and is not safe for concurrent use.
type Ledger struct {
	source  catalog.Source
	pricing Pricing
	lines   []model.CartLine
	version uint64
}

// NewLedger creates an empty cart priced against source.
func NewLedger(source catalog.Source, pricing Pricing) *Ledger {
	return &Ledger{source: source, pricing: pricing}
}

func (l *Ledger) find(productID string) int {
	for i, line := range l.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (l *Ledger) resolve(productID string) error {
	if _, ok := l.source.Product(productID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return nil
}

// AddItem adds one unit of productID.
func (l *Ledger) AddItem(productID string) error {
	if err := l.resolve(productID); err != nil {
		return err
	}
	if i := l.find(productID); i >= 0 {
		if l.lines[i].Quantity >= MaxLineQuantity {
			return fmt.Errorf("%w: %s already at %d", ErrInvalidQuantity, productID, MaxLineQuantity)
		}
		l.lines[i].Quantity++
	} else {
		l.lines = append(l.lines, model.CartLine{ProductID: productID, Quantity: 1})
	}
	l.version++
	return nil
}

// RemoveItem drops the line for productID. Missing lines are ignored.
func (l *Ledger) RemoveItem(productID string) {
	i := l.find(productID)
	if i < 0 {
		return
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	l.version++
}

// SetQuantity sets the line quantity; quantity <= 0 removes the line.
func (l *Ledger) SetQuantity(productID string, quantity int) error {
	if err := l.resolve(productID); err != nil {
		return err
	}
	if quantity <= 0 {
		l.RemoveItem(productID)
		return nil
	}
	if quantity > MaxLineQuantity {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidQuantity, quantity, MaxLineQuantity)
	}
	if i := l.find(productID); i >= 0 {
		if l.lines[i].Quantity == quantity {
			return nil
		}
		l.lines[i].Quantity = quantity
	} else {
		l.lines = append(l.lines, model.CartLine{ProductID: productID, Quantity: quantity})
	}
	l.version++
	return nil
}

// Clear empties the cart.
func (l *Ledger) Clear() {
	if len(l.lines) == 0 {
		return
	}
	l.lines = nil
	l.version++
}

// Lines returns a copy of the current lines.
func (l *Ledger) Lines() []model.CartLine {
	return append([]model.CartLine(nil), l.lines...)
}

// Quantity of productID, 0 when absent.
func (l *Ledger) Quantity(productID string) int {
	if i := l.find(productID); i >= 0 {
		return l.lines[i].Quantity
	}
	return 0
}

func (l *Ledger) IsEmpty() bool { return len(l.lines) == 0 }

// Version increases on every mutation that changed the cart.
func (l *Ledger) Version() uint64 { return l.version }

// Totals recomputes subtotal, tax, shipping and total from the current lines.
func (l *Ledger) Totals() model.CartTotals {
	return l.Snapshot().Totals
}

// Item is a priced cart line.
type Item struct {
	Product   model.Product   `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Snapshot is a frozen, priced copy of the cart.
type Snapshot struct {
	Items  []Item           `json:"items"`
	Totals model.CartTotals `json:"totals"`
}

func (s Snapshot) IsEmpty() bool { return len(s.Items) == 0 }

// Snapshot prices every line against the catalog as of now.
// Lines whose product disappeared from the source are not priced.
func (l *Ledger) Snapshot() Snapshot {
	items := make([]Item, 0, len(l.lines))
	subtotal := decimal.Zero
	count := 0
	for _, line := range l.lines {
		count += line.Quantity
		p, ok := l.source.Product(line.ProductID)
		if !ok {
			continue
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, Item{Product: p, Quantity: line.Quantity, LineTotal: lineTotal})
		subtotal = subtotal.Add(lineTotal)
	}
	return Snapshot{Items: items, Totals: l.pricing.Totals(subtotal, count)}
}
