package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopsana/services/order/internal/repo/repotest"
)

func TestAddItem_MergesIntoOneLine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := repotest.SeedProduct(t, e.repo, "mug", "10.00", 10)
	userID := uuid.New()

	first := e.add(t, userID, p.ID, 2)
	second := e.add(t, userID, p.ID, 3)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	require.NotNil(t, second.UpdatedAt)

	lines, err := e.repo.ListCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	assert.Equal(t, []string{"cart_item_added", "cart_item_added"}, e.events.types())
}

// queriedTables records the table of every SELECT issued through db.
func queriedTables(t *testing.T, db *gorm.DB) func() []string {
	t.Helper()
	var (
		mu     sync.Mutex
		tables []string
	)
	err := db.Callback().Query().After("gorm:query").Register("test:record_tables", func(tx *gorm.DB) {
		mu.Lock()
		defer mu.Unlock()
		tables = append(tables, tx.Statement.Table)
	})
	require.NoError(t, err)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

func TestAddItem_LocksCartLineBeforeProduct(t *testing.T) {
	e := newEnv(t)
	p := repotest.SeedProduct(t, e.repo, "mug", "10.00", 10)
	userID := uuid.New()
	e.add(t, userID, p.ID, 1)

	tables := queriedTables(t, e.repo.DB)
	e.add(t, userID, p.ID, 1)

	got := tables()
	require.GreaterOrEqual(t, len(got), 2, got)
	assert.Equal(t, []string{"cart_items", "products"}, got[:2])
}

func TestAddItem_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := repotest.SeedProduct(t, e.repo, "mug", "10.00", 4)
	inactive := repotest.SeedProduct(t, e.repo, "retired", "10.00", 4)
	_, err := e.repo.PatchProduct(ctx, inactive.ID, map[string]any{"is_active": false})
	require.NoError(t, err)

	userID := uuid.New()
	e.add(t, userID, p.ID, 3)

	tests := []struct {
		name      string
		productID uint
		qty       int
		want      error
	}{
		{name: "zero quantity", productID: p.ID, qty: 0, want: ErrValidation},
		{name: "negative quantity", productID: p.ID, qty: -1, want: ErrValidation},
		{name: "missing product", productID: 999, qty: 1, want: ErrProductUnavailable},
		{name: "inactive product", productID: inactive.ID, qty: 1, want: ErrProductUnavailable},
		{name: "existing plus requested exceeds stock", productID: p.ID, qty: 2, want: ErrInsufficientStock},
	}

	for _, tt := range tests {
		_, err := e.cart.AddItem(ctx, userID, tt.productID, tt.qty)
		assert.ErrorIs(t, err, tt.want, tt.name)
	}

	_, err = e.cart.AddItem(ctx, userID, p.ID, 2)
	assert.ErrorIs(t, err, ErrStock)

	count, err := e.cart.GetItemCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAddItem_ConcurrentNeverOvercommits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := repotest.SeedProduct(t, e.repo, "limited", "5.00", 4)
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.cart.AddItem(ctx, userID, p.ID, 1)
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	lines, err := e.repo.ListCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestUpdateItem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := repotest.SeedProduct(t, e.repo, "mug", "10.00", 5)
	userID := uuid.New()
	line := e.add(t, userID, p.ID, 1)

	updated, removed, err := e.cart.UpdateItem(ctx, userID, line.ID, 4)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 4, updated.Quantity)

	_, _, err = e.cart.UpdateItem(ctx, userID, line.ID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, _, err = e.cart.UpdateItem(ctx, uuid.New(), line.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound, "lines of other users are invisible")

	updated, removed, err = e.cart.UpdateItem(ctx, userID, line.ID, 0)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, updated)

	_, _, err = e.cart.UpdateItem(ctx, userID, line.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"cart_item_added", "cart_item_updated", "cart_item_removed"}, e.events.types())
}

func TestRemoveAndClear_AreIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := repotest.SeedProduct(t, e.repo, "a", "1.00", 5)
	b := repotest.SeedProduct(t, e.repo, "b", "1.00", 5)
	userID := uuid.New()
	line := e.add(t, userID, a.ID, 1)
	e.add(t, userID, b.ID, 2)

	ok, err := e.cart.RemoveItem(ctx, userID, line.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.cart.RemoveItem(ctx, userID, line.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.cart.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.cart.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetCart_Totals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	a := repotest.SeedProduct(t, e.repo, "a", "30.00", 5)
	b := repotest.SeedProduct(t, e.repo, "b", "40.00", 5)
	_, err := e.repo.PatchProduct(ctx, b.ID, map[string]any{"discount_price": decimal.RequireFromString("30.00")})
	require.NoError(t, err)

	e.add(t, userID, a.ID, 1)
	e.add(t, userID, b.ID, 1)

	view, err := e.cart.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "60.00", view.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", view.Shipping.StringFixed(2))
	assert.Equal(t, "6.00", view.Tax.StringFixed(2))
	assert.Equal(t, "66.00", view.Total.StringFixed(2))
	assert.Equal(t, "30.00", view.Items[1].UnitPrice.StringFixed(2))
	assert.Equal(t, "40.00", view.Items[1].ListPrice.StringFixed(2))
	assert.True(t, view.Items[1].Available)
}

func TestGetCart_Empty(t *testing.T) {
	e := newEnv(t)

	view, err := e.cart.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.ItemCount)
	assert.True(t, view.Subtotal.IsZero())
}
