package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationPostgres(t *testing.T) {
	err := fmt.Errorf(`ERROR: duplicate key value violates unique constraint "uq_orders_order_number" (SQLSTATE 23505)`)
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	err := fmt.Errorf("UNIQUE constraint failed: orders.order_number")
	assert.True(t, IsUniqueViolation(err))
}

func TestIsUniqueViolationUnrelated(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(fmt.Errorf("connection refused")))
}
