package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products map[string]shop.Product
	listErr  error
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (shop.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return shop.Product{}, &shop.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

func (s *stubCatalog) ListProducts(_ context.Context, page, size int, search string) ([]shop.Product, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []shop.Product
	for _, p := range s.products {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, p shop.Product) (shop.Product, error) {
	p.ID = "p-new"
	s.products[p.ID] = p
	return p, nil
}

func (s *stubCatalog) UpdateProduct(_ context.Context, p shop.Product) (shop.Product, error) {
	if _, ok := s.products[p.ID]; !ok {
		return shop.Product{}, &shop.ProductNotFoundError{ProductID: p.ID}
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubCatalog) DeleteProduct(_ context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return &shop.ProductNotFoundError{ProductID: id}
	}
	delete(s.products, id)
	return nil
}

func newProductsRig() (*stubCatalog, *ProductsHandler, http.Handler) {
	store := &stubCatalog{products: map[string]shop.Product{
		"p1": {ID: "p1", Name: "Keyboard", PriceCents: 1500, Stock: 10},
	}}
	h := &ProductsHandler{Store: store, Redis: deadRedis(), Auth: testAuth()}
	r := NewRouter()
	h.Register(r)
	return store, h, r
}

func TestListProductsPublic(t *testing.T) {
	_, _, r := newProductsRig()

	// redis mati -> tetap jalan dari DB
	req := httptest.NewRequest("GET", "/products?page=1&page_size=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var page ProductPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Keyboard", page.Products[0].Name)
}

func TestListProductsInternalErrorIsGeneric(t *testing.T) {
	store, _, r := newProductsRig()
	store.listErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")

	req := httptest.NewRequest("GET", "/products", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "internal error")
}

func TestGetProductNotFound(t *testing.T) {
	_, _, r := newProductsRig()

	req := httptest.NewRequest("GET", "/products/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductCRUDRequiresAdmin(t *testing.T) {
	_, h, r := newProductsRig()
	body := `{"name":"Mouse","price_cents":800,"stock":4}`

	// tanpa token
	req := httptest.NewRequest("POST", "/products", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// role USER ditolak
	req = httptest.NewRequest("POST", "/products", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, h.Auth, "u1", shop.RoleUser))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// admin boleh
	req = httptest.NewRequest("POST", "/products", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, h.Auth, "a1", shop.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p shop.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Mouse", p.Name)
	assert.NotEmpty(t, p.ID)
}

func TestCreateProductValidation(t *testing.T) {
	_, h, r := newProductsRig()

	for _, body := range []string{
		`{"name":"","price_cents":800,"stock":4}`,
		`{"name":"Mouse","price_cents":-1,"stock":4}`,
		`{"name":"Mouse","price_cents":800,"stock":-4}`,
		`{`,
	} {
		req := httptest.NewRequest("POST", "/products", strings.NewReader(body))
		req.Header.Set("Authorization", bearer(t, h.Auth, "a1", shop.RoleAdmin))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	store, h, r := newProductsRig()

	req := httptest.NewRequest("PUT", "/products/p1", strings.NewReader(`{"name":"Keyboard XL","price_cents":2000,"stock":7}`))
	req.Header.Set("Authorization", bearer(t, h.Auth, "a1", shop.RoleAdmin))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2000, store.products["p1"].PriceCents)

	req = httptest.NewRequest("DELETE", "/products/p1", nil)
	req.Header.Set("Authorization", bearer(t, h.Auth, "a1", shop.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, store.products, "p1")

	// update barang yang sudah tidak ada
	req = httptest.NewRequest("PUT", "/products/p1", strings.NewReader(`{"name":"X","price_cents":1,"stock":1}`))
	req.Header.Set("Authorization", bearer(t, h.Auth, "a1", shop.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
