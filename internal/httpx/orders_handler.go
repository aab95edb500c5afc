package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-orders.git/internal/auth"
	kafkax "github.com/ariefcatur/go-shop-orders.git/internal/kafka"
	"github.com/ariefcatur/go-shop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, items []shop.ItemInput) (*shop.Order, error)
}

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (shop.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (shop.OrderStatus, error)
	ListUserOrders(ctx context.Context, userID string) ([]shop.Order, error)
}

type OrdersHandler struct {
	Placer   OrderPlacer
	Store    OrderStore
	Producer *kafkax.Producer
	Redis    *redis.Client
	Auth     *auth.Manager
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(g chi.Router) {
		g.Use(RequireAuth(h.Auth))
		g.With(RequireRole(shop.RoleUser)).Post("/orders", h.placeOrder)
		g.Get("/orders", h.listOrders)
		g.Get("/orders/{id}", h.getOrder)
		g.Get("/orders/{id}/status", h.getOrderStatus)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	// body = array [{product_id, qty}, ...]
	var items []shop.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Placer.PlaceOrder(ctx, claims.UserID, items)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	// order sudah final di DB; cache & event boleh gagal tanpa membatalkan apa pun
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	cached, _ := json.Marshal(shop.OrderStatus{UserID: order.UserID, Status: order.Status})
	_ = h.Redis.Set(ctx, statusKey, cached, redisx.TTLStatusCache).Err()

	h.publishPlaced(r, order)

	writeJSON(w, http.StatusCreated, order)
}

// statusFor memetakan error engine ke kode transport.
func statusFor(err error) int {
	var (
		notFound *shop.ProductNotFoundError
		noStock  *shop.InsufficientStockError
	)
	switch {
	case errors.Is(err, shop.ErrInvalidRequest), errors.As(err, &noStock):
		return http.StatusBadRequest
	case errors.Is(err, shop.ErrUserNotFound), errors.Is(err, shop.ErrOrderNotFound), errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrdersHandler) publishPlaced(r *http.Request, o *shop.Order) {
	lines := make([]shop.OrderPlacedLine, 0, len(o.Lines))
	for _, ln := range o.Lines {
		lines = append(lines, shop.OrderPlacedLine{ProductID: ln.ProductID, Qty: ln.Qty, PriceCents: ln.PriceCents})
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(shop.OrderPlacedPayload{
			OrderID:    o.ID,
			UserID:     o.UserID,
			Status:     string(o.Status),
			TotalCents: o.TotalCents,
			Lines:      lines,
		}),
	}
	h.Producer.Publish(shop.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Store.ListUserOrders(ctx, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// order orang lain tidak bocor, balas not found
	if o.UserID != claims.UserID && claims.Role != shop.RoleAdmin {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache; entri cache bawa user_id jadi cek kepemilikan
	// tetap jalan tanpa ke DB
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var st shop.OrderStatus
		if json.Unmarshal([]byte(s), &st) == nil && st.Status != "" {
			h.writeOrderStatus(w, claims, st)
			return
		}
	}

	// 2) fallback DB
	st, err := h.Store.GetOrderStatus(ctx, orderID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	b, _ := json.Marshal(st)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	h.writeOrderStatus(w, claims, st)
}

// order orang lain dibalas not found, sama seperti getOrder
func (h *OrdersHandler) writeOrderStatus(w http.ResponseWriter, claims *auth.Claims, st shop.OrderStatus) {
	if st.UserID != claims.UserID && claims.Role != shop.RoleAdmin {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]shop.Status{"status": st.Status})
}
