package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// TxBeginner dipenuhi oleh *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Placer menempatkan order: satu transaksi per call, stok di-lock dan
// dikurangi per item, order + lines ditulis, commit atau rollback sebagai
// satu unit. Tidak pernah ada decrement parsial yang selamat.
type Placer struct {
	DB      TxBeginner
	Timeout time.Duration // batas per attempt; default 5s
}

// PlaceOrder memproses items dalam urutan caller. Gagal di item mana pun
// membatalkan seluruh transaksi. Deadlock/lock-timeout dari store di-retry
// satu kali; selain itu error langsung naik ke caller.
func (p *Placer) PlaceOrder(ctx context.Context, userID string, items []ItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty item list", ErrInvalidRequest)
	}
	for _, it := range items {
		if it.ProductID == "" || it.Qty <= 0 {
			return nil, fmt.Errorf("%w: qty %d for product %q", ErrInvalidRequest, it.Qty, it.ProductID)
		}
	}

	order, err := p.placeOnce(ctx, userID, items)
	if err != nil && IsTransient(err) {
		order, err = p.placeOnce(ctx, userID, items)
	}
	return order, err
}

func (p *Placer) placeOnce(ctx context.Context, userID string, items []ItemInput) (*Order, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op setelah commit

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	// lock order = urutan item dari caller; kalau dua order saling silang,
	// Postgres yang mendeteksi deadlock dan salah satu tx di-abort
	for _, it := range items {
		line, err := reserve(ctx, tx, it)
		if err != nil {
			return nil, err
		}
		line.OrderID = o.ID
		o.TotalCents += line.PriceCents * line.Qty
		o.Lines = append(o.Lines, line)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.CreatedAt,
	); err != nil {
		return nil, err
	}
	for _, ln := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, qty, price_cents)
			VALUES ($1,$2,$3,$4)`,
			ln.OrderID, ln.ProductID, ln.Qty, ln.PriceCents,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// reserve: lock row produk (FOR UPDATE) -> cek stok -> kurangi.
// Harga yang dikembalikan adalah harga pada detik decrement, itu yang
// dicatat di order line.
func reserve(ctx context.Context, tx pgx.Tx, it ItemInput) (OrderLine, error) {
	var (
		name         string
		price, stock int
	)
	err := tx.QueryRow(ctx,
		`SELECT name, price_cents, stock FROM products WHERE id=$1 FOR UPDATE`,
		it.ProductID,
	).Scan(&name, &price, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderLine{}, &ProductNotFoundError{ProductID: it.ProductID}
	}
	if err != nil {
		return OrderLine{}, err
	}
	if stock < it.Qty {
		return OrderLine{}, &InsufficientStockError{ProductName: name, Requested: it.Qty, Available: stock}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
		it.ProductID, it.Qty,
	); err != nil {
		return OrderLine{}, err
	}
	return OrderLine{ProductID: it.ProductID, Qty: it.Qty, PriceCents: price}, nil
}
