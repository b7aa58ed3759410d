package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
)

func TestCatalog_CreateAndPatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: e.repo, Events: e.events}

	p := &models.Product{Name: " lamp ", Price: decimal.RequireFromString("20.00"), StockQuantity: 3, IsActive: true}
	require.NoError(t, svc.CreateProduct(ctx, p))
	assert.Equal(t, "lamp", p.Name)
	assert.NotZero(t, p.ID)

	discount := decimal.RequireFromString("15.00")
	got, err := svc.PatchProduct(ctx, p.ID, ProductPatch{DiscountPrice: &discount})
	require.NoError(t, err)
	require.True(t, got.DiscountPrice.Valid)
	assert.Equal(t, "15.00", got.PriceInfo().Current().StringFixed(2))

	got, err = svc.PatchProduct(ctx, p.ID, ProductPatch{ClearDiscount: true})
	require.NoError(t, err)
	assert.False(t, got.DiscountPrice.Valid)

	inactive := false
	got, err = svc.PatchProduct(ctx, p.ID, ProductPatch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.Equal(t, []string{"product_created", "product_updated", "product_updated", "product_updated"}, e.events.types())
}

func TestCatalog_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: e.repo}

	err := svc.CreateProduct(ctx, &models.Product{Name: "", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.CreateProduct(ctx, &models.Product{Name: "x", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.CreateProduct(ctx, &models.Product{Name: "x", Price: decimal.NewFromInt(1), StockQuantity: -1})
	assert.ErrorIs(t, err, ErrValidation)

	negative := -3
	_, err = svc.PatchProduct(ctx, 1, ProductPatch{StockQuantity: &negative})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetProduct(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_RejectsSubCentPrices(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: e.repo}

	err := svc.CreateProduct(ctx, &models.Product{Name: "bolt", Price: decimal.RequireFromString("1.005"), IsActive: true})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.CreateProduct(ctx, &models.Product{
		Name:          "bolt",
		Price:         decimal.RequireFromString("2.00"),
		DiscountPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.999")),
		IsActive:      true,
	})
	assert.ErrorIs(t, err, ErrValidation)

	p := &models.Product{Name: "bolt", Price: decimal.RequireFromString("1.50"), IsActive: true}
	require.NoError(t, svc.CreateProduct(ctx, p))

	subCent := decimal.RequireFromString("0.333")
	_, err = svc.PatchProduct(ctx, p.ID, ProductPatch{Price: &subCent})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.PatchProduct(ctx, p.ID, ProductPatch{DiscountPrice: &subCent})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.5")))
	assert.False(t, got.DiscountPrice.Valid)
}

func TestCatalog_NameLengthCountsCharacters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := &CatalogService{Repo: e.repo}

	// 200 two-byte characters fit; 201 do not.
	fits := &models.Product{Name: strings.Repeat("é", 200), Price: decimal.NewFromInt(1), IsActive: true}
	require.NoError(t, svc.CreateProduct(ctx, fits))

	err := svc.CreateProduct(ctx, &models.Product{Name: strings.Repeat("é", 201), Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrValidation)
}
