package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

func TestSimulatedGateway(t *testing.T) {
	gw := &SimulatedGateway{FailEvery: 2}
	ctx := context.Background()
	amount := decimal.RequireFromString("49.30")

	assert.NoError(t, gw.Charge(ctx, "BCC-1", amount))
	assert.ErrorIs(t, gw.Charge(ctx, "BCC-2", amount), ErrPaymentDeclined)
	assert.NoError(t, gw.Charge(ctx, "BCC-3", amount))

	slow := &SimulatedGateway{Latency: time.Hour}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, slow.Charge(cctx, "BCC-4", amount), context.Canceled)
}

func TestPaymentProcessor_CapturesAsynchronously(t *testing.T) {
	svc, _ := newTestOrders(t, &SimulatedGateway{Latency: 10 * time.Millisecond})
	ctx := context.Background()
	order, err := svc.Confirm(ctx, filledLedger(t).Snapshot(), "", "parent@demo.com")
	require.NoError(t, err)

	p := NewPaymentProcessor(svc, 8, time.Second)
	stop := p.Start(2)
	defer func() { _ = stop(context.Background()) }()

	var hooked CaptureResult
	task, err := p.Submit(order.OrderID, func(res CaptureResult) { hooked = res })
	require.NoError(t, err)

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not finish")
	}
	paid, err := task.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaymentReceived, paid.Status)
	require.NotNil(t, hooked.Order)
	assert.Equal(t, order.OrderID, hooked.Order.OrderID)

	select {
	case d := <-p.Metrics():
		assert.Greater(t, d, time.Duration(0))
	case <-time.After(time.Second):
		t.Fatal("no latency sample")
	}

	// result is stable across waits
	again, err := task.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, paid, again)
}

func TestPaymentProcessor_QueueFull(t *testing.T) {
	svc, _ := newTestOrders(t, nil)
	p := NewPaymentProcessor(svc, 1, time.Second)

	_, err := p.Submit("BCC-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.QueueLen())

	_, err = p.Submit("BCC-2")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPaymentProcessor_StopDrainsAndRejects(t *testing.T) {
	svc, _ := newTestOrders(t, nil)
	ctx := context.Background()
	order, err := svc.Confirm(ctx, filledLedger(t).Snapshot(), "", "parent@demo.com")
	require.NoError(t, err)

	p := NewPaymentProcessor(svc, 4, time.Second)
	stop := p.Start(1)
	task, err := p.Submit(order.OrderID)
	require.NoError(t, err)
	require.NoError(t, stop(ctx))

	_, err = task.Wait(ctx)
	require.NoError(t, err)

	_, err = p.Submit(order.OrderID)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPaymentProcessor_StopTwice(t *testing.T) {
	svc, _ := newTestOrders(t, nil)
	p := NewPaymentProcessor(svc, 4, time.Second)
	stop := p.Start(2)

	require.NoError(t, stop(context.Background()))
	assert.NotPanics(t, func() {
		assert.NoError(t, stop(context.Background()))
	})
}

func TestCaptureTask_WaitHonoursContext(t *testing.T) {
	task := newCaptureTask("BCC-1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
