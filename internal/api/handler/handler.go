package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/internal/api/middleware"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/service"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

// Handler 商城 HTTP 处理器
type Handler struct {
	catalog  *catalog.Catalog
	orders   service.OrderService
	checkout *service.CheckoutService
	support  *service.SupportService
}

func New(cat *catalog.Catalog, orders service.OrderService, checkout *service.CheckoutService, support *service.SupportService) *Handler {
	return &Handler{catalog: cat, orders: orders, checkout: checkout, support: support}
}

func (h *Handler) session(c *gin.Context) (*service.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "missing shopping session")
		return nil, false
	}
	return sess, true
}

// fail 业务错误到 HTTP 状态码的唯一映射
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownProduct):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		response.ErrorWithData(c, http.StatusBadRequest, err.Error(), gin.H{"field": "quantity"})
	case errors.Is(err, service.ErrEmptyCart):
		response.Unprocessable(c, "add items to your cart before confirming")
	case errors.Is(err, service.ErrInvalidEmail):
		response.ErrorWithData(c, http.StatusUnprocessableEntity,
			"enter a valid email address so we can send your receipt and tracking updates",
			gin.H{"field": "email"})
	case errors.Is(err, service.ErrEmptyMessage):
		response.Unprocessable(c, err.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrPaymentInProgress),
		errors.Is(err, service.ErrNoPendingOrder):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrPaymentDeclined):
		response.Error(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrQueueFull):
		response.Error(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		response.Error(c, http.StatusGatewayTimeout, "payment is still processing, check checkout status shortly")
	default:
		response.InternalError(c, err)
	}
}

// Health 健康检查
// @Summary 健康检查
// @Tags system
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "products": h.catalog.Len()})
}
