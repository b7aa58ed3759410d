// Package repotest opens throwaway sqlite databases for tests.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopsana/pkg/db"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
)

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "order.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, repo.Migrate(gdb))
	return gdb
}

func NewRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return repo.New(NewDB(t))
}

func SeedProduct(t *testing.T, r *repo.GormRepo, name, price string, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}
