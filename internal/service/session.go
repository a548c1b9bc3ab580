package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
)

// Phase 购物会话所处阶段
type Phase string

const (
	PhaseShopping          Phase = "shopping"
	PhaseAwaitingPayment   Phase = "awaiting_payment"
	PhaseProcessingPayment Phase = "processing_payment"
)

// ChatMessage 客服对话中的一条消息
type ChatMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session 单个购物者的状态：购物车、待支付订单、客服对话
// 所有字段经 mu 访问
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	ledger         *cart.Ledger
	phase          Phase
	pendingOrderID string
	lastOrderID    string
	transcript     []ChatMessage
	lastSeen       time.Time
}

// SessionState 会话的只读快照
type SessionState struct {
	ID             string        `json:"session_id"`
	Phase          Phase         `json:"phase"`
	PendingOrderID string        `json:"pending_order_id,omitempty"`
	LastOrderID    string        `json:"last_order_id,omitempty"`
	Cart           cart.Snapshot `json:"cart"`
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ID:             s.ID,
		Phase:          s.phase,
		PendingOrderID: s.pendingOrderID,
		LastOrderID:    s.lastOrderID,
		Cart:           s.ledger.Snapshot(),
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Cart() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// mutateCart 收款处理中拒绝修改；待支付时修改购物车会放弃该待支付订单
func (s *Session) mutateCart(fn func(l *cart.Ledger) error) (cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseProcessingPayment {
		return cart.Snapshot{}, ErrPaymentInProgress
	}
	before := s.ledger.Version()
	if err := fn(s.ledger); err != nil {
		return cart.Snapshot{}, err
	}
	if s.phase == PhaseAwaitingPayment && s.ledger.Version() != before {
		logger.Debug("cart changed, pending order released",
			zap.String("session_id", s.ID), zap.String("order_id", s.pendingOrderID))
		s.pendingOrderID = ""
		s.phase = PhaseShopping
	}
	return s.ledger.Snapshot(), nil
}

func (s *Session) AddItem(productID string) (cart.Snapshot, error) {
	return s.mutateCart(func(l *cart.Ledger) error { return l.AddItem(productID) })
}

func (s *Session) RemoveItem(productID string) (cart.Snapshot, error) {
	return s.mutateCart(func(l *cart.Ledger) error {
		l.RemoveItem(productID)
		return nil
	})
}

func (s *Session) SetQuantity(productID string, quantity int) (cart.Snapshot, error) {
	return s.mutateCart(func(l *cart.Ledger) error { return l.SetQuantity(productID, quantity) })
}

func (s *Session) ClearCart() (cart.Snapshot, error) {
	return s.mutateCart(func(l *cart.Ledger) error {
		l.Clear()
		return nil
	})
}

// beginPayment 进入收款处理阶段，返回待支付订单号
func (s *Session) beginPayment() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.phase == PhaseProcessingPayment:
		return "", ErrPaymentInProgress
	case s.pendingOrderID == "":
		return "", ErrNoPendingOrder
	}
	s.phase = PhaseProcessingPayment
	return s.pendingOrderID, nil
}

func (s *Session) abortPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseProcessingPayment {
		s.phase = PhaseAwaitingPayment
	}
}

func (s *Session) finishPayment(orderID string, res CaptureResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Err != nil && !errors.Is(res.Err, ErrAlreadyPaid) {
		s.phase = PhaseAwaitingPayment
		return
	}
	// 收款成功（或此前已收款）后清空购物车
	s.ledger.Clear()
	s.lastOrderID = orderID
	s.pendingOrderID = ""
	s.phase = PhaseShopping
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore 进程内会话表
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	source   catalog.Source
	pricing  cart.Pricing
	now      func() time.Time
}

func NewSessionStore(source catalog.Source, pricing cart.Pricing) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		source:   source,
		pricing:  pricing,
		now:      time.Now,
	}
}

// Create 新建一个空购物车会话
func (st *SessionStore) Create() *Session {
	now := st.now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ledger:    cart.NewLedger(st.source, st.pricing),
		phase:     PhaseShopping,
		lastSeen:  now,
	}
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(st.now())
	return sess, nil
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep 删除闲置超过 idle 的会话；收款处理中的会话保留
func (st *SessionStore) Sweep(idle time.Duration) int {
	cutoff := st.now().Add(-idle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, sess := range st.sessions {
		if sess.Phase() == PhaseProcessingPayment {
			continue
		}
		if sess.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper 定期清理闲置会话，ctx 结束时退出
func (st *SessionStore) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := st.Sweep(idle); n > 0 {
					logger.Info("idle sessions swept", zap.Int("removed", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
