package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"gorm.io/gorm"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// ShardedOrderRepository 分库订单仓储实现
// 订单号哈希决定分库；按邮箱查询需要扫描所有分库
type ShardedOrderRepository struct {
	shards []*SingleDBOrderRepository
}

// NewShardedOrderRepository 创建分库订单仓储
func NewShardedOrderRepository(dbs []*gorm.DB) (*ShardedOrderRepository, error) {
	if len(dbs) == 0 {
		return nil, errors.New("sharded repository needs at least one database")
	}
	shards := make([]*SingleDBOrderRepository, len(dbs))
	for i, db := range dbs {
		shards[i] = NewSingleDBOrderRepository(db)
	}
	return &ShardedOrderRepository{shards: shards}, nil
}

// RouteByOrderID 根据订单号路由到对应的分库
func RouteByOrderID(orderID string, shardCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(NormalizeOrderID(orderID)))
	return int(h.Sum32() % uint32(shardCount))
}

func (r *ShardedOrderRepository) shard(orderID string) *SingleDBOrderRepository {
	return r.shards[RouteByOrderID(orderID, len(r.shards))]
}

// ShardCount 分库数量
func (r *ShardedOrderRepository) ShardCount() int { return len(r.shards) }

// Create 创建订单
func (r *ShardedOrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.shard(order.OrderID).Create(ctx, order)
}

// GetByOrderID 根据订单号查询订单 (精确路由)
func (r *ShardedOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return r.shard(orderID).GetByOrderID(ctx, orderID)
}

// Exists 订单号是否存在 (精确路由)
func (r *ShardedOrderRepository) Exists(ctx context.Context, orderID string) (bool, error) {
	return r.shard(orderID).Exists(ctx, orderID)
}

// ListByEmail 根据邮箱查询订单列表 (并发查询所有分库后合并)
func (r *ShardedOrderRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*model.Order, error) {
	var wg sync.WaitGroup
	resultChan := make(chan []*model.Order, len(r.shards))
	errChan := make(chan error, len(r.shards))

	for _, s := range r.shards {
		wg.Add(1)
		go func(s *SingleDBOrderRepository) {
			defer wg.Done()
			orders, err := s.ListByEmail(ctx, email, limit)
			if err != nil {
				errChan <- err
				return
			}
			resultChan <- orders
		}(s)
	}

	wg.Wait()
	close(resultChan)
	close(errChan)

	if len(errChan) > 0 {
		return nil, <-errChan
	}

	var all []*model.Order
	for orders := range resultChan {
		all = append(all, orders...)
	}

	// 按下单时间排序
	sortNewestFirst(all)

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// AppendStatus 更新订单状态 (精确路由)
func (r *ShardedOrderRepository) AppendStatus(ctx context.Context, orderID, status string, entry model.StatusEntry) error {
	return r.shard(orderID).AppendStatus(ctx, orderID, status, entry)
}

// Count 统计订单数量 (需要查询所有分库)
func (r *ShardedOrderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	errChan := make(chan error, len(r.shards))

	for _, s := range r.shards {
		wg.Add(1)
		go func(s *SingleDBOrderRepository) {
			defer wg.Done()
			n, err := s.Count(ctx)
			if err != nil {
				errChan <- err
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}(s)
	}

	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return 0, <-errChan
	}
	return total, nil
}

// Close 关闭所有分库连接
func (r *ShardedOrderRepository) Close() error {
	var errs []error
	for _, s := range r.shards {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InitSchema 初始化所有分库的表结构
func (r *ShardedOrderRepository) InitSchema() error {
	for i, s := range r.shards {
		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}
