package shop

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInvalidRequest = errors.New("invalid order request")
	ErrUserNotFound   = errors.New("user not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrUserExists     = errors.New("username or email already taken")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// IsTransient: gagal karena contention di Postgres, aman retry seluruh tx.
// 40001 serialization_failure, 40P01 deadlock_detected, 55P03 lock_not_available.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
