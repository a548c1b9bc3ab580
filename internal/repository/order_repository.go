package repository

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists 订单号重复
	ErrOrderExists = errors.New("order already exists")
)

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 创建订单（含明细与状态时间线）
	Create(ctx context.Context, order *model.Order) error

	// GetByOrderID 根据订单号查询订单，orderID 需为规范化后的订单号
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)

	// Exists 订单号是否已被占用
	Exists(ctx context.Context, orderID string) (bool, error)

	// ListByEmail 根据联系邮箱查询订单，按下单时间倒序
	ListByEmail(ctx context.Context, email string, limit int) ([]*model.Order, error)

	// AppendStatus 更新订单状态并在时间线最前插入一条记录
	AppendStatus(ctx context.Context, orderID, status string, entry model.StatusEntry) error

	// Count 统计订单数量
	Count(ctx context.Context) (int64, error)

	// Close 释放资源
	Close() error
}

// NormalizeOrderID 去掉所有空白并转大写
func NormalizeOrderID(orderID string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, orderID))
}

// NormalizeEmail 邮箱比较键
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// prepareForCreate 规范化订单号、邮箱键以及时间线序号
func prepareForCreate(order *model.Order) {
	order.OrderID = NormalizeOrderID(order.OrderID)
	order.EmailKey = NormalizeEmail(order.ContactEmail)
	n := len(order.History)
	for i := range order.History {
		order.History[i].OrderID = order.OrderID
		if order.History[i].Seq == 0 {
			// 时间线最新在前
			order.History[i].Seq = n - i
		}
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.OrderID
	}
}
