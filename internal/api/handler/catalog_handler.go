package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

type productListResponse struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
	Filtered bool            `json:"filtered"`
	Empty    bool            `json:"empty"`
	Query    catalog.Query   `json:"query"`
}

// ListCategories 商品分类
// @Summary 商品分类列表
// @Tags catalog
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /api/v1/catalog/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	response.Success(c, h.catalog.Categories())
}

// ListProducts 按搜索词、分类、排序筛选商品
// @Summary 筛选商品
// @Tags catalog
// @Produce json
// @Param q query string false "搜索词（名称或描述）"
// @Param category query string false "分类 ID，all 表示全部"
// @Param sort query string false "featured | price-asc | price-desc"
// @Success 200 {object} response.Response{data=productListResponse}
// @Failure 400 {object} response.Response
// @Router /api/v1/catalog/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	var q catalog.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	view := h.catalog.Filter(q)
	response.Success(c, productListResponse{
		Products: view.Products,
		Count:    len(view.Products),
		Filtered: view.Filtered(),
		Empty:    view.Empty(),
		Query:    view.Query,
	})
}

// GetProduct 单个商品
// @Summary 商品详情
// @Tags catalog
// @Produce json
// @Param product_id path string true "商品 ID"
// @Success 200 {object} response.Response{data=model.Product}
// @Failure 404 {object} response.Response
// @Router /api/v1/catalog/products/{product_id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	p, ok := h.catalog.Product(c.Param("product_id"))
	if !ok {
		response.NotFound(c, "unknown product")
		return
	}
	response.Success(c, p)
}
