package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// MemoryOrderRepository 进程内订单仓储（默认实现）
type MemoryOrderRepository struct {
	mu      sync.RWMutex
	orders  map[string]*model.Order
	byEmail map[string][]string
}

// NewMemoryOrderRepository 创建内存订单仓储
func NewMemoryOrderRepository() OrderRepository {
	return &MemoryOrderRepository{
		orders:  make(map[string]*model.Order),
		byEmail: make(map[string][]string),
	}
}

// Create 创建订单
func (r *MemoryOrderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := order.Clone()
	prepareForCreate(stored)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[stored.OrderID]; exists {
		return ErrOrderExists
	}
	r.orders[stored.OrderID] = stored
	r.byEmail[stored.EmailKey] = append(r.byEmail[stored.EmailKey], stored.OrderID)

	order.OrderID = stored.OrderID
	order.EmailKey = stored.EmailKey
	order.History = append([]model.StatusEntry(nil), stored.History...)
	order.Items = append([]model.OrderItem(nil), stored.Items...)
	return nil
}

// GetByOrderID 根据订单号查询订单
func (r *MemoryOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[NormalizeOrderID(orderID)]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Exists 订单号是否存在
func (r *MemoryOrderRepository) Exists(ctx context.Context, orderID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.orders[NormalizeOrderID(orderID)]
	return ok, nil
}

// ListByEmail 根据邮箱查询订单列表
func (r *MemoryOrderRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byEmail[NormalizeEmail(email)]
	orders := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, r.orders[id].Clone())
	}
	r.mu.RUnlock()

	sortNewestFirst(orders)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// AppendStatus 更新状态并插入时间线
func (r *MemoryOrderRepository) AppendStatus(ctx context.Context, orderID, status string, entry model.StatusEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[NormalizeOrderID(orderID)]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	order.Prepend(entry)
	order.UpdatedAt = time.Now()
	return nil
}

// Count 统计订单数量
func (r *MemoryOrderRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.orders)), nil
}

// Close 内存实现无需释放
func (r *MemoryOrderRepository) Close() error { return nil }

func sortNewestFirst(orders []*model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].PlacedAt.After(orders[j].PlacedAt)
	})
}
