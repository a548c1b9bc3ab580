package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
)

// CheckoutService 把会话购物车、订单服务和异步收款串起来
type CheckoutService struct {
	orders    OrderService
	processor *PaymentProcessor
}

// NewCheckoutService processor 可为 nil，此时收款在独立 goroutine 中执行
func NewCheckoutService(orders OrderService, processor *PaymentProcessor) *CheckoutService {
	return &CheckoutService{orders: orders, processor: processor}
}

// Confirm 用当前购物车下单，会话进入待支付；购物车保持不变
func (c *CheckoutService) Confirm(ctx context.Context, sess *Session, name, email string) (*model.Order, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.phase == PhaseProcessingPayment {
		return nil, ErrPaymentInProgress
	}

	order, err := c.orders.Confirm(ctx, sess.ledger.Snapshot(), name, email)
	if err != nil {
		return nil, err
	}
	sess.pendingOrderID = order.OrderID
	sess.phase = PhaseAwaitingPayment
	return order, nil
}

// StartPayment 提交待支付订单的收款，立即返回任务句柄
// 任务完成前会话处于 processing_payment
func (c *CheckoutService) StartPayment(sess *Session) (*CaptureTask, error) {
	orderID, err := sess.beginPayment()
	if err != nil {
		return nil, err
	}
	finish := func(res CaptureResult) { sess.finishPayment(orderID, res) }

	if c.processor == nil {
		task := newCaptureTask(orderID, finish)
		go func() {
			order, err := c.orders.CapturePayment(context.Background(), orderID)
			task.complete(order, err)
		}()
		return task, nil
	}

	task, err := c.processor.Submit(orderID, finish)
	if err != nil {
		sess.abortPayment()
		return nil, err
	}
	return task, nil
}

// Pay 提交收款并等待结果；ctx 结束只停止等待，收款本身继续
func (c *CheckoutService) Pay(ctx context.Context, sess *Session) (*model.Order, error) {
	task, err := c.StartPayment(sess)
	if err != nil {
		return nil, err
	}
	order, err := task.Wait(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("checkout payment failed", zap.String("session_id", sess.ID), zap.String("order_id", task.OrderID), zap.Error(err))
	}
	return order, err
}
