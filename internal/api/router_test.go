package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/bcc-marketplace/config"
	"github.com/d60-Lab/bcc-marketplace/internal/api/handler"
	"github.com/d60-Lab/bcc-marketplace/internal/api/middleware"
	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/catalog"
	"github.com/d60-Lab/bcc-marketplace/internal/repository"
	"github.com/d60-Lab/bcc-marketplace/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	cat := catalog.Default()
	orders := service.NewOrderService(repository.NewMemoryOrderRepository(), service.OrderOptions{})
	require.NoError(t, orders.Seed(context.Background(), service.SeedOrders()))
	processor := service.NewPaymentProcessor(orders, 16, 5*time.Second)
	stop := processor.Start(2)
	t.Cleanup(func() { _ = stop(context.Background()) })

	sessions := service.NewSessionStore(cat, cart.DefaultPricing())
	h := handler.New(cat, orders, service.NewCheckoutService(orders, processor), service.NewSupportService())
	r := NewRouter(cfg, Deps{
		Handler:  h,
		Sessions: sessions,
		Tokens:   middleware.NewSessionTokens(cfg.Session.Secret, cfg.Session.TTL),
	})
	return &testServer{t: t, router: r}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		Session: config.SessionConfig{Secret: "test-secret-0123456789", TTL: time.Hour},
	}
}

func (s *testServer) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set(middleware.SessionHeader, s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if tok := w.Header().Get(middleware.SessionHeader); tok != "" {
		s.token = tok
	}

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

type cartBody struct {
	Items []struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
		Quantity int `json:"quantity"`
	} `json:"items"`
	Totals struct {
		Subtotal  decimal.Decimal `json:"subtotal"`
		Tax       decimal.Decimal `json:"tax"`
		Shipping  decimal.Decimal `json:"shipping"`
		Total     decimal.Decimal `json:"total"`
		ItemCount int             `json:"item_count"`
	} `json:"totals"`
}

type orderBody struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Total   decimal.Decimal `json:"total"`
	History []struct {
		Label string `json:"label"`
	} `json:"status_history"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
}

func TestRouter_CatalogFilter(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(http.MethodGet, "/api/v1/catalog/products?q=Family", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
		Count    int  `json:"count"`
		Filtered bool `json:"filtered"`
		Empty    bool `json:"empty"`
	}](t, env.Data)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "advent-story-kit", list.Products[0].ID)
	assert.Equal(t, "faith-family-box", list.Products[1].ID)
	assert.True(t, list.Filtered)

	_, env = s.do(http.MethodGet, "/api/v1/catalog/products?q=zebra&sort=price-asc", nil)
	empty := decode[struct {
		Empty    bool `json:"empty"`
		Filtered bool `json:"filtered"`
	}](t, env.Data)
	assert.True(t, empty.Empty)
	assert.True(t, empty.Filtered)

	w, _ = s.do(http.MethodGet, "/api/v1/catalog/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/catalog/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 6)
}

func TestRouter_CartCheckoutAndLookup(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "weekend-lesson-kit"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, s.token)
	w, env = s.do(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "weekend-lesson-kit"})
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[cartBody](t, env.Data)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "78.00", c.Totals.Subtotal.StringFixed(2))
	assert.True(t, c.Totals.Shipping.IsZero())
	assert.Equal(t, "83.46", c.Totals.Total.StringFixed(2))

	w, _ = s.do(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPut, "/api/v1/cart/items/weekend-lesson-kit", `{"quantity": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/cart/items/weekend-lesson-kit", `{"quantity": "abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/cart/items/weekend-lesson-kit", map[string]int{"quantity": 1000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodPut, "/api/v1/cart/items/weekend-lesson-kit", map[string]int{"quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	c = decode[cartBody](t, env.Data)
	assert.Equal(t, "6.50", c.Totals.Shipping.StringFixed(2))

	w, env = s.do(http.MethodPost, "/api/v1/checkout/confirm", map[string]string{"name": "Jennifer", "email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "email", decode[map[string]string](t, env.Data)["field"])

	w, env = s.do(http.MethodPost, "/api/v1/checkout/confirm", map[string]string{"name": "Jennifer", "email": "Parent@Demo.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	confirmed := decode[struct {
		Order orderBody `json:"order"`
	}](t, env.Data)
	orderID := confirmed.Order.OrderID
	assert.Equal(t, "Awaiting Payment", confirmed.Order.Status)

	w, env = s.do(http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[map[string]any](t, env.Data)
	assert.Equal(t, "awaiting_payment", state["phase"])
	assert.Equal(t, orderID, state["pending_order_id"])

	w, env = s.do(http.MethodPost, "/api/v1/checkout/payment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	paid := decode[orderBody](t, env.Data)
	assert.Equal(t, "Payment received - preparing for shipment", paid.Status)
	assert.Equal(t, "Payment received", paid.History[0].Label)

	_, env = s.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decode[cartBody](t, env.Data).Items)

	w, _ = s.do(http.MethodPost, "/api/v1/orders/"+orderID+"/payment", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/orders/lookup?order_id="+strings.ToLower(orderID)+"&email=PARENT@demo.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orderID, decode[orderBody](t, env.Data).OrderID)

	w, env = s.do(http.MethodGet, "/api/v1/orders/lookup?order_id="+orderID+"&email=other@demo.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, env.Data)["hint"], "try again")

	w, env = s.do(http.MethodGet, "/api/v1/orders/recent?email=parent@demo.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recent := decode[struct {
		Orders []orderBody `json:"orders"`
	}](t, env.Data)
	require.Len(t, recent.Orders, 2)
	assert.Equal(t, orderID, recent.Orders[0].OrderID)
	assert.Equal(t, "BCC-24001", recent.Orders[1].OrderID)
}

func TestRouter_CheckoutErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(http.MethodPost, "/api/v1/checkout/confirm", map[string]string{"email": "parent@demo.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/checkout/payment", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/orders/BCC-000000-000/payment", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AsyncPayment(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "praise-card-pack"})
	w, _ := s.do(http.MethodPost, "/api/v1/checkout/confirm", map[string]string{"email": "parent@demo.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/checkout/payment?async=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		_, env := s.do(http.MethodGet, "/api/v1/checkout", nil)
		state := decode[map[string]any](t, env.Data)
		return state["phase"] == "shopping" && state["last_order_id"] != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_SessionsAreIsolated(t *testing.T) {
	a := newTestServer(t, nil)
	a.do(http.MethodPost, "/api/v1/cart/items", map[string]string{"product_id": "praise-card-pack"})

	// a second client on the same router starts with its own empty cart
	b := &testServer{t: t, router: a.router}
	_, env := b.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decode[cartBody](t, env.Data).Items)
	assert.NotEqual(t, a.token, b.token)

	// an invalid token also gets a fresh session
	b.token = "garbage"
	_, env = b.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decode[cartBody](t, env.Data).Items)
	assert.NotEqual(t, "garbage", b.token)
}

func TestRouter_SupportChat(t *testing.T) {
	s := newTestServer(t, nil)
	_, env := s.do(http.MethodGet, "/api/v1/support/messages", nil)
	assert.Len(t, decode[[]service.ChatMessage](t, env.Data), 2)

	w, env := s.do(http.MethodPost, "/api/v1/support/messages", map[string]string{"text": "How long is shipping?"})
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]service.ChatMessage](t, env.Data)
	require.Len(t, msgs, 4)
	assert.True(t, strings.HasPrefix(msgs[3].Text, "Shipping update"))

	w, _ = s.do(http.MethodPost, "/api/v1/support/messages", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		w, _ := s.do(http.MethodGet, "/api/v1/catalog/categories", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := s.do(http.MethodGet, "/api/v1/catalog/categories", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
