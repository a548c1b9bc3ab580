package catalog

import (
	"sort"
	"strings"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// SortMode orders a filtered view.
type SortMode string

const (
	SortFeatured  SortMode = "featured"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
)

// ParseSortMode maps unknown or empty values to SortFeatured.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortFeatured
	}
}

// Query holds the shopper's search, category and sort selection.
type Query struct {
	Search   string   `form:"q" json:"q"`
	Category string   `form:"category" json:"category"`
	Sort     SortMode `form:"sort" json:"sort"`
}

func (q Query) normalized() Query {
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		q.Category = model.CategoryAll
	}
	q.Sort = ParseSortMode(string(q.Sort))
	return q
}

// View is the result of Filter.
type View struct {
	Products []model.Product `json:"products"`
	Query    Query           `json:"query"`
}

// Empty reports whether nothing matched.
func (v View) Empty() bool { return len(v.Products) == 0 }

// Filtered reports whether the query narrowed the catalog (search or category).
// An empty view with Filtered()==false means the catalog itself is empty.
func (v View) Filtered() bool {
	return v.Query.Search != "" || v.Query.Category != model.CategoryAll
}

// Filter applies category, search and sort to the catalog. It has no side effects.
func (c *Catalog) Filter(q Query) View {
	q = q.normalized()

	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		if q.Category != model.CategoryAll && p.Category != q.Category {
			continue
		}
		if q.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), q.Search) &&
			!strings.Contains(strings.ToLower(p.Description), q.Search) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	}

	return View{Products: out, Query: q}
}
