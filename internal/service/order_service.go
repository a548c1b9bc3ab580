package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/internal/repository"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
)

// DefaultContactName is used when checkout leaves the name blank.
const DefaultContactName = "BCC Kids Family"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var tracer = otel.Tracer("github.com/d60-Lab/bcc-marketplace/internal/service")

// ValidEmail reports whether email (already trimmed) looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// OrderService 订单生命周期：下单、收款、查询
type OrderService interface {
	Confirm(ctx context.Context, snapshot cart.Snapshot, name, email string) (*model.Order, error)
	CapturePayment(ctx context.Context, orderID string) (*model.Order, error)
	Lookup(ctx context.Context, orderID, email string) (*model.Order, bool, error)
	RecentOrders(ctx context.Context, email string, limit int) ([]*model.Order, error)
	Seed(ctx context.Context, orders []*model.Order) error
}

// OrderOptions 下单规则
type OrderOptions struct {
	Prefix        string
	LeadTime      time.Duration
	RecentLimit   int
	MaxIDAttempts int
	Gateway       PaymentGateway
	Now           func() time.Time
	// Suffix returns the random part of an order id, 100..999.
	Suffix func() int
}

func (o *OrderOptions) applyDefaults() {
	if o.Prefix == "" {
		o.Prefix = "BCC"
	}
	if o.LeadTime <= 0 {
		o.LeadTime = 5 * 24 * time.Hour
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 5
	}
	if o.MaxIDAttempts <= 0 {
		o.MaxIDAttempts = 20
	}
	if o.Gateway == nil {
		o.Gateway = &SimulatedGateway{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Suffix == nil {
		var mu sync.Mutex
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		o.Suffix = func() int {
			mu.Lock()
			defer mu.Unlock()
			return 100 + rnd.Intn(900)
		}
	}
}

type orderService struct {
	repo repository.OrderRepository
	opts OrderOptions

	// 每个订单同一时刻只允许一笔收款
	inflight sync.Map
}

func NewOrderService(repo repository.OrderRepository, opts OrderOptions) OrderService {
	opts.applyDefaults()
	return &orderService{repo: repo, opts: opts}
}

func (s *orderService) newOrderID(at time.Time) string {
	return fmt.Sprintf("%s-%s-%03d", s.opts.Prefix, at.UTC().Format("060102"), s.opts.Suffix())
}

func (s *orderService) Confirm(ctx context.Context, snapshot cart.Snapshot, name, email string) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Confirm")
	defer span.End()

	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultContactName
	}

	now := s.opts.Now().UTC()
	build := func(id string) *model.Order {
		items := make([]model.OrderItem, 0, len(snapshot.Items))
		for _, it := range snapshot.Items {
			itemName := it.Product.Name
			if itemName == "" {
				itemName = "Resource"
			}
			items = append(items, model.OrderItem{
				ProductID: it.Product.ID,
				Name:      itemName,
				Quantity:  it.Quantity,
				UnitPrice: it.Product.Price,
			})
		}
		return &model.Order{
			OrderID:           id,
			ContactName:       name,
			ContactEmail:      email,
			Status:            model.OrderStatusAwaitingPayment,
			PlacedAt:          now,
			EstimatedDelivery: now.Add(s.opts.LeadTime),
			Total:             snapshot.Totals.Total,
			Items:             items,
			History: []model.StatusEntry{
				{Label: model.HistoryAwaitingPayment, Timestamp: now},
				{Label: model.HistoryOrderCreated, Timestamp: now},
			},
			UpdatedAt: now,
		}
	}

	for attempt := 0; attempt < s.opts.MaxIDAttempts; attempt++ {
		order := build(s.newOrderID(now))
		err := s.repo.Create(ctx, order)
		if errors.Is(err, repository.ErrOrderExists) {
			logger.Debug("order id collision, retrying", zap.String("order_id", order.OrderID))
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create order")
			return nil, fmt.Errorf("create order: %w", err)
		}
		span.SetAttributes(attribute.String("order.id", order.OrderID), attribute.String("order.total", order.Total.StringFixed(2)))
		logger.Info("order confirmed",
			zap.String("order_id", order.OrderID),
			zap.String("total", order.Total.StringFixed(2)),
			zap.Int("items", len(order.Items)))
		return order, nil
	}
	return nil, ErrOrderIDUnavailable
}

func (s *orderService) CapturePayment(ctx context.Context, orderID string) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CapturePayment")
	defer span.End()

	id := repository.NormalizeOrderID(orderID)
	if id == "" {
		return nil, ErrOrderNotFound
	}
	span.SetAttributes(attribute.String("order.id", id))

	if _, busy := s.inflight.LoadOrStore(id, struct{}{}); busy {
		return nil, ErrPaymentInProgress
	}
	defer s.inflight.Delete(id)

	order, err := s.repo.GetByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	if err := s.opts.Gateway.Charge(ctx, order.OrderID, order.Total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge")
		logger.Warn("payment capture failed", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("charge %s: %w", id, err)
	}

	entry := model.StatusEntry{Label: model.HistoryPaymentReceived, Timestamp: s.opts.Now().UTC()}
	if err := s.repo.AppendStatus(ctx, id, model.OrderStatusPaymentReceived, entry); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	logger.Info("payment captured", zap.String("order_id", id), zap.String("total", order.Total.StringFixed(2)))

	return s.repo.GetByOrderID(ctx, id)
}

func (s *orderService) Lookup(ctx context.Context, orderID, email string) (*model.Order, bool, error) {
	id := repository.NormalizeOrderID(orderID)
	if id == "" {
		return nil, false, nil
	}
	order, err := s.repo.GetByOrderID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if want := repository.NormalizeEmail(email); want != "" && repository.NormalizeEmail(order.ContactEmail) != want {
		return nil, false, nil
	}
	return order, true, nil
}

func (s *orderService) RecentOrders(ctx context.Context, email string, limit int) ([]*model.Order, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if limit <= 0 || limit > s.opts.RecentLimit {
		limit = s.opts.RecentLimit
	}
	return s.repo.ListByEmail(ctx, email, limit)
}

// Seed 写入历史订单；已存在的跳过，重启时可重复执行
func (s *orderService) Seed(ctx context.Context, orders []*model.Order) error {
	for _, o := range orders {
		err := s.repo.Create(ctx, o.Clone())
		if errors.Is(err, repository.ErrOrderExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", o.OrderID, err)
		}
	}
	return nil
}
