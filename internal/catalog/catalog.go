package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

var (
	ErrDuplicateProduct = errors.New("duplicate product id")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrUnknownProduct   = errors.New("unknown product")
)

// Source resolves product ids; the cart prices lines through it.
type Source interface {
	Product(id string) (model.Product, bool)
}

// Catalog is the immutable, ordered list of purchasable products.
// Safe for concurrent reads; nothing mutates it after New.
type Catalog struct {
	categories []model.Category
	products   []model.Product
	index      map[string]int
}

// New copies categories and products into a catalog, keeping their order.
func New(categories []model.Category, products []model.Product) (*Catalog, error) {
	c := &Catalog{
		categories: append([]model.Category(nil), categories...),
		products:   make([]model.Product, 0, len(products)),
		index:      make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidProduct)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: %s has negative price", ErrInvalidProduct, p.ID)
		}
		// 金额按分存储，不接受更细的价格
		if !p.Price.Equal(p.Price.Round(2)) {
			return nil, fmt.Errorf("%w: %s price %s has sub-cent precision", ErrInvalidProduct, p.ID, p.Price)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Product returns the product with the given id.
func (c *Catalog) Product(id string) (model.Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[i], true
}

// Products returns a copy of all products in catalog order.
func (c *Catalog) Products() []model.Product {
	return append([]model.Product(nil), c.products...)
}

// Categories returns a copy of the category list, including the "all" entry.
func (c *Catalog) Categories() []model.Category {
	return append([]model.Category(nil), c.categories...)
}

// CategoryName falls back to "Resource" for unknown ids.
func (c *Catalog) CategoryName(id string) string {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat.Name
		}
	}
	return "Resource"
}

// Len is the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// WithPrice returns a new catalog where product id has the given price.
// The receiver is left untouched.
func (c *Catalog) WithPrice(id string, price decimal.Decimal) (*Catalog, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	products := c.Products()
	products[i].Price = price
	return New(c.categories, products)
}
