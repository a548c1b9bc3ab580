package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

// SingleDBOrderRepository 单库订单仓储实现
type SingleDBOrderRepository struct {
	db *gorm.DB
}

// NewSingleDBOrderRepository 创建单库订单仓储
func NewSingleDBOrderRepository(db *gorm.DB) *SingleDBOrderRepository {
	return &SingleDBOrderRepository{db: db}
}

// Create 在一个事务内写入订单、明细和时间线
func (r *SingleDBOrderRepository) Create(ctx context.Context, order *model.Order) error {
	prepareForCreate(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&model.Order{}).Where("order_id = ?", order.OrderID).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrOrderExists
		}
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		if len(order.History) > 0 {
			if err := tx.Create(&order.History).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq DESC") })
}

// GetByOrderID 根据订单号查询订单
func (r *SingleDBOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := preloadOrder(r.db.WithContext(ctx)).
		Where("order_id = ?", NormalizeOrderID(orderID)).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Exists 订单号是否存在
func (r *SingleDBOrderRepository) Exists(ctx context.Context, orderID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", NormalizeOrderID(orderID)).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListByEmail 根据邮箱查询订单列表
func (r *SingleDBOrderRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	q := preloadOrder(r.db.WithContext(ctx)).
		Where("email_key = ?", NormalizeEmail(email)).
		Order("placed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// AppendStatus 在一个事务内更新状态并写入时间线
func (r *SingleDBOrderRepository) AppendStatus(ctx context.Context, orderID, status string, entry model.StatusEntry) error {
	orderID = NormalizeOrderID(orderID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("order_id = ?", orderID).
			Updates(map[string]any{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}

		if entry.Seq == 0 {
			var maxSeq int
			if err := tx.Model(&model.StatusEntry{}).
				Select("COALESCE(MAX(seq), 0)").
				Where("order_id = ?", orderID).
				Scan(&maxSeq).Error; err != nil {
				return err
			}
			entry.Seq = maxSeq + 1
		}
		entry.ID = 0
		entry.OrderID = orderID
		return tx.Create(&entry).Error
	})
}

// Count 统计订单数量
func (r *SingleDBOrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error
	return count, err
}

// Close 关闭数据库连接
func (r *SingleDBOrderRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema 初始化数据库表结构
func (r *SingleDBOrderRepository) InitSchema() error {
	if err := r.db.AutoMigrate(&model.Order{}, &model.OrderItem{}, &model.StatusEntry{}); err != nil {
		return fmt.Errorf("failed to migrate order tables: %w", err)
	}
	return nil
}
