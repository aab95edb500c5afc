package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo: akses users/products/orders di luar jalur reservasi.
// Mutasi stok hanya lewat Placer.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateUser(ctx context.Context, username, email, passwordHash, role string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, username, email, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrUserExists
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE username=$1`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, category, price_cents, stock, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListProducts: katalog paginated + search nama (case-insensitive).
// Read-only, tidak ikut transaksi reservasi.
func (r *Repo) ListProducts(ctx context.Context, page, size int, search string) ([]Product, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'`, search,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, category, price_cents, stock, created_at, updated_at
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`, search, size, (page-1)*size,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = uuid.NewString()
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, category, price_cents, stock)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.DB.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, category=$4, price_cents=$5, stock=$6, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &ProductNotFoundError{ProductID: p.ID}
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: id}
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, created_at
		FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)

	lines, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	var st OrderStatus
	var s string
	err := r.DB.QueryRow(ctx, `SELECT user_id, status FROM orders WHERE id=$1`, orderID).Scan(&st.UserID, &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderStatus{}, ErrOrderNotFound
	}
	if err != nil {
		return OrderStatus{}, err
	}
	st.Status = Status(s)
	return st, nil
}

// ListUserOrders: order milik user, terbaru dulu, lengkap dengan lines.
func (r *Repo) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, status, total_cents, created_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (r *Repo) linesFor(ctx context.Context, orderIDs []string) (map[string][]OrderLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents
		FROM order_lines WHERE order_id = ANY($1)`, orderIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := map[string][]OrderLine{}
	for rows.Next() {
		var ln OrderLine
		if err := rows.Scan(&ln.OrderID, &ln.ProductID, &ln.Qty, &ln.PriceCents); err != nil {
			return nil, err
		}
		byOrder[ln.OrderID] = append(byOrder[ln.OrderID], ln)
	}
	return byOrder, rows.Err()
}
