package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
)

// CachedOrderRepository redis 读穿缓存，写操作后失效
// redis 不可用时直接退化为底层仓储
type CachedOrderRepository struct {
	inner OrderRepository
	cache *redis.Client
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedOrderRepository 创建带缓存的订单仓储
func NewCachedOrderRepository(inner OrderRepository, cache *redis.Client, ttl time.Duration) *CachedOrderRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedOrderRepository{inner: inner, cache: cache, ttl: ttl}
}

func orderKey(orderID string) string { return fmt.Sprintf("order:%s", NormalizeOrderID(orderID)) }

func emailKey(email string) string { return fmt.Sprintf("orders:email:%s", NormalizeEmail(email)) }

// Create 写入底层仓储并清掉该邮箱的列表缓存
func (r *CachedOrderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := r.inner.Create(ctx, order); err != nil {
		return err
	}
	r.invalidate(ctx, emailKey(order.ContactEmail))
	return nil
}

// GetByOrderID 先查缓存，未命中再查库并回填
func (r *CachedOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	key := orderKey(orderID)
	if data, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var out model.Order
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			r.hits.Add(1)
			return &out, nil
		}
	}
	r.misses.Add(1)

	order, err := r.inner.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, order)
	return order, nil
}

func (r *CachedOrderRepository) Exists(ctx context.Context, orderID string) (bool, error) {
	if n, err := r.cache.Exists(ctx, orderKey(orderID)).Result(); err == nil && n > 0 {
		return true, nil
	}
	return r.inner.Exists(ctx, orderID)
}

// ListByEmail 缓存整个列表
func (r *CachedOrderRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*model.Order, error) {
	key := fmt.Sprintf("%s:%d", emailKey(email), limit)
	if data, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var out []*model.Order
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			r.hits.Add(1)
			return out, nil
		}
	}
	r.misses.Add(1)

	orders, err := r.inner.ListByEmail(ctx, email, limit)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(orders); err == nil {
		pipe := r.cache.Pipeline()
		pipe.Set(ctx, key, payload, r.ttl)
		// 记录该邮箱下的所有列表 key，失效时一并删除
		pipe.SAdd(ctx, emailKey(email), key)
		pipe.Expire(ctx, emailKey(email), r.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("order list cache fill failed", zap.String("key", key), zap.Error(err))
		}
	}
	return orders, nil
}

// AppendStatus 更新后删除订单缓存与邮箱列表缓存
func (r *CachedOrderRepository) AppendStatus(ctx context.Context, orderID, status string, entry model.StatusEntry) error {
	if err := r.inner.AppendStatus(ctx, orderID, status, entry); err != nil {
		return err
	}
	r.invalidate(ctx, orderKey(orderID))
	if order, err := r.inner.GetByOrderID(ctx, orderID); err == nil {
		r.invalidate(ctx, emailKey(order.ContactEmail))
	}
	return nil
}

func (r *CachedOrderRepository) Count(ctx context.Context) (int64, error) {
	return r.inner.Count(ctx)
}

// Close 只关闭底层仓储，redis 客户端由调用方管理
func (r *CachedOrderRepository) Close() error { return r.inner.Close() }

func (r *CachedOrderRepository) store(ctx context.Context, key string, order *model.Order) {
	payload, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		logger.Warn("order cache fill failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedOrderRepository) invalidate(ctx context.Context, key string) {
	// 邮箱 key 是一个 set，里面是各 limit 的列表 key
	if members, err := r.cache.SMembers(ctx, key).Result(); err == nil && len(members) > 0 {
		r.cache.Del(ctx, members...)
	}
	if err := r.cache.Del(ctx, key).Err(); err != nil {
		logger.Warn("order cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// ResetCounters clears hit/miss counters.
func (r *CachedOrderRepository) ResetCounters() {
	r.hits.Store(0)
	r.misses.Store(0)
}

// CacheCounters summarises cache effectiveness.
type CacheCounters struct {
	Hits   int64
	Misses int64
}

// Counters reports cache hits and misses since the last reset.
func (r *CachedOrderRepository) Counters() CacheCounters {
	return CacheCounters{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
