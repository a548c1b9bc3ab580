package model

import "github.com/shopspring/decimal"

// CategoryAll 不按分类过滤
const CategoryAll = "all"

// Category 商品分类
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Product 商品（目录定义，只读）
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Summary     string          `json:"summary"`
	Rank        int             `json:"rank"` // 越小越靠前
}
