package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-orders.git/internal/auth"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/go-chi/chi/v5"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash, role string) (shop.User, error)
	GetUserByUsername(ctx context.Context, username string) (shop.User, error)
}

type UsersHandler struct {
	Store UserStore
	Auth  *auth.Manager
}

type SignupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResp struct {
	Token string `json:"token"`
}

func (h *UsersHandler) Register(r *chi.Mux) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
}

func (h *UsersHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Username) < 3 || len(req.Password) < 8 || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username min 3, password min 8, email must be valid"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Store.CreateUser(ctx, req.Username, req.Email, hash, shop.RoleUser)
	if errors.Is(err, shop.ErrUserExists) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Store.GetUserByUsername(ctx, req.Username)
	// user tidak ada & password salah dibalas sama, jangan kasih tahu mana yg salah
	if errors.Is(err, shop.ErrUserNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	token, err := h.Auth.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResp{Token: token})
}
