package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/internal/service"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart 当前购物车及合计
// @Summary 查看购物车
// @Tags cart
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Success 200 {object} response.Response{data=cart.Snapshot}
// @Router /api/v1/cart [get]
func (h *Handler) GetCart(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, sess.Cart())
}

// AddItem 加入一件商品
// @Summary 加入购物车
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param request body addItemRequest true "商品"
// @Success 200 {object} response.Response{data=cart.Snapshot}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/cart/items [post]
func (h *Handler) AddItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := sess.AddItem(req.ProductID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, snap)
}

// SetQuantity 设置数量，0 或负数移除该行
// @Summary 修改数量
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param product_id path string true "商品 ID"
// @Param request body setQuantityRequest true "数量（整数）"
// @Success 200 {object} response.Response{data=cart.Snapshot}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/cart/items/{product_id} [put]
func (h *Handler) SetQuantity(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 非整数数量一律按 InvalidQuantity 处理
		h.fail(c, service.ErrInvalidQuantity)
		return
	}
	snap, err := sess.SetQuantity(c.Param("product_id"), *req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, snap)
}

// RemoveItem 移除一行
// @Summary 移除商品
// @Tags cart
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param product_id path string true "商品 ID"
// @Success 200 {object} response.Response{data=cart.Snapshot}
// @Router /api/v1/cart/items/{product_id} [delete]
func (h *Handler) RemoveItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.RemoveItem(c.Param("product_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, snap)
}

// ClearCart 清空购物车
// @Summary 清空购物车
// @Tags cart
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Success 200 {object} response.Response{data=cart.Snapshot}
// @Router /api/v1/cart [delete]
func (h *Handler) ClearCart(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := sess.ClearCart()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Response{Code: 0, Message: "cart cleared", Data: snap})
}
