package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

func newCheckout(t *testing.T, gw PaymentGateway, withProcessor bool) (*CheckoutService, *SessionStore, OrderService) {
	t.Helper()
	orders, _ := newTestOrders(t, gw)
	var p *PaymentProcessor
	if withProcessor {
		p = NewPaymentProcessor(orders, 8, 5*time.Second)
		stop := p.Start(2)
		t.Cleanup(func() { _ = stop(context.Background()) })
	}
	return NewCheckoutService(orders, p), NewSessionStore(catalog.Default(), cart.DefaultPricing()), orders
}

func TestCheckout_ConfirmAndPay(t *testing.T) {
	for _, withProcessor := range []bool{true, false} {
		checkout, sessions, orders := newCheckout(t, nil, withProcessor)
		ctx := context.Background()
		sess := sessions.Create()

		_, err := sess.AddItem("leader-starter-pack")
		require.NoError(t, err)
		snap, err := sess.AddItem("praise-card-pack")
		require.NoError(t, err)
		assert.Equal(t, "81.50", snap.Totals.Subtotal.StringFixed(2))
		assert.True(t, snap.Totals.Shipping.IsZero())

		order, err := checkout.Confirm(ctx, sess, "Jennifer", "parent@demo.com")
		require.NoError(t, err)
		state := sess.State()
		assert.Equal(t, PhaseAwaitingPayment, state.Phase)
		assert.Equal(t, order.OrderID, state.PendingOrderID)
		assert.Equal(t, 2, state.Cart.Totals.ItemCount)

		paid, err := checkout.Pay(ctx, sess)
		require.NoError(t, err)
		assert.True(t, paid.IsPaid())

		state = sess.State()
		assert.Equal(t, PhaseShopping, state.Phase)
		assert.Empty(t, state.PendingOrderID)
		assert.Equal(t, order.OrderID, state.LastOrderID)
		assert.True(t, state.Cart.IsEmpty())

		got, found, err := orders.Lookup(ctx, order.OrderID, "parent@demo.com")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, model.OrderStatusPaymentReceived, got.Status)
	}
}

func TestCheckout_PayWithoutPendingOrder(t *testing.T) {
	checkout, sessions, _ := newCheckout(t, nil, true)
	_, err := checkout.Pay(context.Background(), sessions.Create())
	assert.ErrorIs(t, err, ErrNoPendingOrder)
}

func TestCheckout_ConfirmFailuresKeepShopping(t *testing.T) {
	checkout, sessions, _ := newCheckout(t, nil, true)
	ctx := context.Background()
	sess := sessions.Create()

	_, err := checkout.Confirm(ctx, sess, "", "parent@demo.com")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = sess.AddItem("advent-story-kit")
	require.NoError(t, err)
	_, err = checkout.Confirm(ctx, sess, "", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	state := sess.State()
	assert.Equal(t, PhaseShopping, state.Phase)
	assert.Equal(t, 1, state.Cart.Totals.ItemCount)
}

func TestCheckout_DeclinedPaymentReturnsToAwaiting(t *testing.T) {
	checkout, sessions, _ := newCheckout(t, &failingGateway{fails: 1}, true)
	ctx := context.Background()
	sess := sessions.Create()
	_, err := sess.AddItem("advent-story-kit")
	require.NoError(t, err)
	order, err := checkout.Confirm(ctx, sess, "", "parent@demo.com")
	require.NoError(t, err)

	_, err = checkout.Pay(ctx, sess)
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	state := sess.State()
	assert.Equal(t, PhaseAwaitingPayment, state.Phase)
	assert.Equal(t, order.OrderID, state.PendingOrderID)
	assert.False(t, state.Cart.IsEmpty())

	_, err = checkout.Pay(ctx, sess)
	require.NoError(t, err)
	assert.True(t, sess.Cart().IsEmpty())
}

func TestCheckout_ProcessingPhaseBlocksCartAndSecondPay(t *testing.T) {
	gw := newBlockingGateway()
	checkout, sessions, _ := newCheckout(t, gw, true)
	ctx := context.Background()
	sess := sessions.Create()
	_, err := sess.AddItem("advent-story-kit")
	require.NoError(t, err)
	_, err = checkout.Confirm(ctx, sess, "", "parent@demo.com")
	require.NoError(t, err)

	task, err := checkout.StartPayment(sess)
	require.NoError(t, err)
	<-gw.started
	assert.Equal(t, PhaseProcessingPayment, sess.Phase())

	_, err = checkout.StartPayment(sess)
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	_, err = sess.AddItem("advent-story-kit")
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	_, err = checkout.Confirm(ctx, sess, "", "parent@demo.com")
	assert.ErrorIs(t, err, ErrPaymentInProgress)

	close(gw.release)
	_, err = task.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseShopping, sess.Phase())
	assert.True(t, sess.Cart().IsEmpty())
}

func TestSession_CartChangeReleasesPendingOrder(t *testing.T) {
	checkout, sessions, orders := newCheckout(t, nil, true)
	ctx := context.Background()
	sess := sessions.Create()
	_, err := sess.AddItem("advent-story-kit")
	require.NoError(t, err)
	order, err := checkout.Confirm(ctx, sess, "", "parent@demo.com")
	require.NoError(t, err)

	// no-op removal keeps the pending order
	_, err = sess.RemoveItem("praise-card-pack")
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingPayment, sess.Phase())

	_, err = sess.SetQuantity("advent-story-kit", 2)
	require.NoError(t, err)
	state := sess.State()
	assert.Equal(t, PhaseShopping, state.Phase)
	assert.Empty(t, state.PendingOrderID)

	// the released order stays in history, unpaid
	got, found, err := orders.Lookup(ctx, order.OrderID, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.OrderStatusAwaitingPayment, got.Status)

	_, err = checkout.Pay(ctx, sess)
	assert.ErrorIs(t, err, ErrNoPendingOrder)
}

func TestSession_CartErrorsLeaveStateAlone(t *testing.T) {
	sessions := NewSessionStore(catalog.Default(), cart.DefaultPricing())
	sess := sessions.Create()

	_, err := sess.AddItem("missing")
	assert.ErrorIs(t, err, ErrUnknownProduct)
	_, err = sess.SetQuantity("advent-story-kit", cart.MaxLineQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, sess.Cart().IsEmpty())

	snap, err := sess.ClearCart()
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestSessionStore_GetAndSweep(t *testing.T) {
	sessions := NewSessionStore(catalog.Default(), cart.DefaultPricing())
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	stale := sessions.Create()
	now = now.Add(40 * time.Minute)
	fresh := sessions.Create()

	got, err := sessions.Get(fresh.ID)
	require.NoError(t, err)
	assert.Same(t, fresh, got)
	_, err = sessions.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, sessions.Sweep(30*time.Minute))
	assert.Equal(t, 1, sessions.Len())
	_, err = sessions.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
