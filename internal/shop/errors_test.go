package shop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"wrapped deadlock", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestTypedErrorsCarryContext(t *testing.T) {
	err := error(&InsufficientStockError{ProductName: "Mouse", Requested: 5, Available: 2})
	var ins *InsufficientStockError
	assert.ErrorAs(t, err, &ins)
	assert.Contains(t, err.Error(), "Mouse")
	assert.Contains(t, err.Error(), "requested 5")
	assert.Contains(t, err.Error(), "available 2")

	err = &ProductNotFoundError{ProductID: "p-42"}
	var pnf *ProductNotFoundError
	assert.ErrorAs(t, err, &pnf)
	assert.Contains(t, err.Error(), "p-42")
}
