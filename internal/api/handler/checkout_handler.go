package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

type confirmRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type confirmResponse struct {
	Order   *model.Order `json:"order"`
	Message string       `json:"message"`
}

type paymentAcceptedResponse struct {
	OrderID string `json:"order_id"`
	Phase   string `json:"phase"`
}

// GetCheckout 会话阶段、待支付订单和购物车
// @Summary 结算状态
// @Tags checkout
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Success 200 {object} response.Response{data=service.SessionState}
// @Router /api/v1/checkout [get]
func (h *Handler) GetCheckout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, sess.State())
}

// Confirm 用购物车下单，等待支付
// @Summary 确认订单
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param request body confirmRequest true "联系人"
// @Success 201 {object} response.Response{data=confirmResponse}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/checkout/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.checkout.Confirm(c.Request.Context(), sess, req.Name, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, confirmResponse{
		Order: order,
		Message: "Order " + order.OrderID + " is reserved for $" + order.Total.StringFixed(2) +
			". Please complete payment below to finalize your shipment.",
	})
}

// Pay 支付待支付订单；async=true 时立即返回 202，之后轮询 /checkout
// @Summary 提交支付
// @Tags checkout
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param async query bool false "异步提交"
// @Success 200 {object} response.Response{data=model.Order}
// @Success 202 {object} response.Response{data=paymentAcceptedResponse}
// @Failure 402 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/checkout/payment [post]
func (h *Handler) Pay(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if c.Query("async") == "true" {
		task, err := h.checkout.StartPayment(sess)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Accepted(c, paymentAcceptedResponse{OrderID: task.OrderID, Phase: string(sess.Phase())})
		return
	}
	order, err := h.checkout.Pay(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, order)
}
