package shop

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     Status      `json:"status"` // lihat status.go
	TotalCents int         `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	Lines      []OrderLine `json:"lines"`
}

// OrderLine menyimpan harga snapshot saat order dibuat; perubahan harga
// katalog setelahnya tidak mengubah order lama.
type OrderLine struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// OrderStatus: isi cache order_status:{id}. user_id ikut disimpan supaya
// pembaca cache bisa cek kepemilikan tanpa balik ke DB; jangan dikirim
// mentah-mentah ke klien.
type OrderStatus struct {
	UserID string `json:"user_id"`
	Status Status `json:"status"`
}
