package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-shop-orders.git/internal/auth"
	"github.com/ariefcatur/go-shop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (shop.Product, error)
	ListProducts(ctx context.Context, page, size int, search string) ([]shop.Product, int, error)
	CreateProduct(ctx context.Context, p shop.Product) (shop.Product, error)
	UpdateProduct(ctx context.Context, p shop.Product) (shop.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type ProductsHandler struct {
	Store CatalogStore
	Redis *redis.Client
	Auth  *auth.Manager
}

type ProductPage struct {
	Products []shop.Product `json:"products"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
}

type ProductReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int    `json:"price_cents"`
	Stock       int    `json:"stock"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Group(func(g chi.Router) {
		g.Use(RequireAuth(h.Auth), RequireRole(shop.RoleAdmin))
		g.Post("/products", h.createProduct)
		g.Put("/products/{id}", h.updateProduct)
		g.Delete("/products/{id}", h.deleteProduct)
	})
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	size := atoiDefault(r.URL.Query().Get("page_size"), 20)
	search := r.URL.Query().Get("search")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache per kombinasi page/size/search; error redis = anggap miss
	key := fmt.Sprintf(redisx.KeyProductPage, page, size, search)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	products, total, err := h.Store.ListProducts(ctx, page, size, search)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if products == nil {
		products = []shop.Product{}
	}
	resp := ProductPage{Products: products, Page: page, PageSize: size, Total: total}
	b, _ := json.Marshal(resp)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLProductPage).Err()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.PriceCents < 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.CreateProduct(ctx, shop.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.invalidatePages(ctx)
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.PriceCents < 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.UpdateProduct(ctx, shop.Product{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.invalidatePages(ctx)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.invalidatePages(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// katalog berubah -> halaman cache basi semua
func (h *ProductsHandler) invalidatePages(ctx context.Context) {
	_ = redisx.DeleteByPrefix(ctx, h.Redis, redisx.KeyProductPagePrefix)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return def
	}
	return i
}
