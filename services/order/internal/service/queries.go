package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
	"github.com/Skotchmaster/shopsana/services/order/internal/util"
)

// OrderIndex is the admin search index. The database stays the source of
// truth; search only yields ids.
type OrderIndex interface {
	IndexOrder(ctx context.Context, order *models.Order) error
	SearchOrders(ctx context.Context, query string, from, size int) (ids []uint, total int64, err error)
}

type OrderPage struct {
	Items    []models.Order `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return o, err
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	o, err := s.Repo.GetOrderByNumber(ctx, number)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, number)
	}
	return o, err
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, page, size int) (*OrderPage, error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)

	orders, total, err := s.Repo.ListUserOrders(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter repo.OrderFilter, page, size int) (*OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)

	orders, total, err := s.Repo.ListOrders(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *OrderService) Stats(ctx context.Context) (repo.OrderStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.Repo.Stats(ctx, dayStart)
}

// SearchOrders asks the index for matching ids and loads the orders from the
// database in rank order. Ids the database no longer knows are skipped.
func (s *OrderService) SearchOrders(ctx context.Context, query string, page, size int) (*OrderPage, error) {
	if s.Index == nil {
		return nil, fmt.Errorf("%w: search is not configured", ErrValidation)
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)

	ids, total, err := s.Index.SearchOrders(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Repo.GetOrder(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	return &OrderPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *OrderService) index(ctx context.Context, order *models.Order) {
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.Index.IndexOrder(ictx, order); err != nil {
		logging.FromContext(ctx).Warn("index_order_error", "order_id", order.ID, "error", err)
	}
}
