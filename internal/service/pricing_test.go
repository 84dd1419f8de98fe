package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountedFee(t *testing.T) {
	assert.Equal(t, int64(1000), discountedFee(1000, 0))
	assert.Equal(t, int64(1000), discountedFee(1000, -5))
	assert.Equal(t, int64(900), discountedFee(1000, 10))
	assert.Equal(t, int64(899), discountedFee(999, 10)) // 899.1 rounds down
	assert.Equal(t, int64(0), discountedFee(500, 100))
}

func TestCartTotal(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ev := e.seedEvent(t, "Code Sprint", "tech", 200)
	pass := e.seedPass(t, "Tech Combo", "tech", 400)
	e.seedInventory(t, "male", 5, 300)
	_, err := e.db.Exec(`UPDATE events SET discount_percent = 10 WHERE id = ?`, ev)
	require.NoError(t, err)

	// 180 (discounted event) + 400 (pass) + 2 * 300 (rooms).
	total, err := CartTotal(ctx, e.events, e.inventory, []uint64{ev}, []uint64{pass}, "male", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1180), total)

	// Accommodation-free cart ignores gender entirely.
	total, err = CartTotal(ctx, e.events, e.inventory, []uint64{ev}, nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(180), total)
}
