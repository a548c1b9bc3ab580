package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
)

var ErrPaymentDeclined = errors.New("payment declined")

// PaymentGateway 外部收款通道
type PaymentGateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal) error
}

// SimulatedGateway 模拟网关：固定延迟，每 FailEvery 笔拒付一次（0 表示从不拒付）
type SimulatedGateway struct {
	Latency   time.Duration
	FailEvery int64

	calls atomic.Int64
}

func (g *SimulatedGateway) Charge(ctx context.Context, orderID string, amount decimal.Decimal) error {
	n := g.calls.Add(1)
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if g.FailEvery > 0 && n%g.FailEvery == 0 {
		return fmt.Errorf("%w: %s %s", ErrPaymentDeclined, orderID, amount.StringFixed(2))
	}
	return nil
}

// CaptureResult 一次异步收款的结果
type CaptureResult struct {
	Order *model.Order
	Err   error
}

// CaptureTask 异步收款句柄，结果只产生一次
type CaptureTask struct {
	OrderID string
	done    chan struct{}
	result  CaptureResult
	onDone  []func(CaptureResult)
}

func newCaptureTask(orderID string, onDone ...func(CaptureResult)) *CaptureTask {
	return &CaptureTask{OrderID: orderID, done: make(chan struct{}), onDone: onDone}
}

// complete runs the hooks before Done is closed, so waiters observe their effects.
func (t *CaptureTask) complete(order *model.Order, err error) {
	t.result = CaptureResult{Order: order, Err: err}
	for _, fn := range t.onDone {
		fn(t.result)
	}
	close(t.done)
}

// Done is closed once the capture finished.
func (t *CaptureTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the capture finished or ctx ends.
func (t *CaptureTask) Wait(ctx context.Context) (*model.Order, error) {
	select {
	case <-t.done:
		return t.result.Order, t.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type captureJob struct {
	task  *CaptureTask
	enqAt time.Time
}

// PaymentProcessor 本地异步收款执行器：有界队列 + 固定 worker
type PaymentProcessor struct {
	orders    OrderService
	ch        chan captureJob
	metricsCh chan time.Duration
	timeout   time.Duration

	mu      sync.Mutex
	stopped bool
}

func NewPaymentProcessor(orders OrderService, queueSize int, timeout time.Duration) *PaymentProcessor {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentProcessor{
		orders:    orders,
		ch:        make(chan captureJob, queueSize),
		metricsCh: make(chan time.Duration, 4096),
		timeout:   timeout,
	}
}

// Start 启动 worker，返回的函数用于停止并排空队列
func (p *PaymentProcessor) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-p.ch:
					p.run(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	var (
		once    sync.Once
		stopErr error
	)
	// 多次调用只停止一次，之后返回首次的结果
	return func(ctx context.Context) error {
		once.Do(func() { stopErr = p.stop(ctx, stopCh, &wg) })
		return stopErr
	}
}

func (p *PaymentProcessor) stop(ctx context.Context, stopCh chan struct{}, wg *sync.WaitGroup) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	close(stopCh)
	wg.Wait()

	// 剩余任务在调用方 goroutine 里处理完，保证每个 task 都有结果
	for {
		select {
		case job := <-p.ch:
			if err := ctx.Err(); err != nil {
				job.task.complete(nil, err)
				continue
			}
			p.run(job)
		default:
			return ctx.Err()
		}
	}
}

func (p *PaymentProcessor) run(job captureJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	order, err := p.orders.CapturePayment(ctx, job.task.OrderID)
	cancel()
	job.task.complete(order, err)

	select {
	case p.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Submit 入队一次收款；队列满或已停止时返回 ErrQueueFull
// onDone 在结果产生后、Done 关闭前执行
func (p *PaymentProcessor) Submit(orderID string, onDone ...func(CaptureResult)) (*CaptureTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrQueueFull
	}
	task := newCaptureTask(orderID, onDone...)
	select {
	case p.ch <- captureJob{task: task, enqAt: time.Now()}:
		return task, nil
	default:
		logger.Warn("payment queue full, reject capture", zap.String("order_id", orderID))
		return nil, ErrQueueFull
	}
}

// Metrics 返回收款耗时（入队到完成）的只读通道
func (p *PaymentProcessor) Metrics() <-chan time.Duration { return p.metricsCh }

// QueueLen 返回当前队列长度（采样值）
func (p *PaymentProcessor) QueueLen() int { return len(p.ch) }
