package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

const lookupMissHint = "We couldn't find that order. Double-check your confirmation number and email, then try again or start a chat with our support team."

// LookupOrder 按订单号（和可选邮箱）查询
// @Summary 查询订单状态
// @Tags orders
// @Produce json
// @Param order_id query string true "订单号，忽略空白和大小写"
// @Param email query string false "联系邮箱"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/lookup [get]
func (h *Handler) LookupOrder(c *gin.Context) {
	order, found, err := h.orders.Lookup(c.Request.Context(), c.Query("order_id"), c.Query("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		response.ErrorWithData(c, http.StatusNotFound, "order not found", gin.H{"hint": lookupMissHint})
		return
	}
	response.Success(c, order)
}

// RecentOrders 某邮箱最近的订单
// @Summary 最近订单
// @Tags orders
// @Produce json
// @Param email query string true "联系邮箱"
// @Param limit query int false "数量"
// @Success 200 {object} response.Response{data=[]model.Order}
// @Failure 422 {object} response.Response
// @Router /api/v1/orders/recent [get]
func (h *Handler) RecentOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	orders, err := h.orders.RecentOrders(c.Request.Context(), c.Query("email"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "count": len(orders)})
}

// CapturePayment 直接对订单收款（门店/后台使用）
// @Summary 订单收款
// @Tags orders
// @Produce json
// @Param order_id path string true "订单号"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/{order_id}/payment [post]
func (h *Handler) CapturePayment(c *gin.Context) {
	order, err := h.orders.CapturePayment(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, order)
}
