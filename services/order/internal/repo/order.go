package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
)

type OrderFilter struct {
	Status models.OrderStatus
	Search string
}

type OrderStats struct {
	TotalOrders   int64           `json:"total_orders"`
	PendingOrders int64           `json:"pending_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TodayRevenue  decimal.Decimal `json:"today_revenue"`
}

// CreateOrderWithUniqueNumber inserts the order header under a fresh number
// from next. A unique violation on the number rolls back to a savepoint and
// tries again, so the surrounding transaction stays usable. It must run
// inside Transaction. After attempts collisions it returns ErrDuplicate.
func (r *GormRepo) CreateOrderWithUniqueNumber(ctx context.Context, order *models.Order, next func() string, attempts int) error {
	db := r.DB.WithContext(ctx)

	for i := 0; i < attempts; i++ {
		sp := fmt.Sprintf("order_number_%d", i)
		if err := db.SavePoint(sp).Error; err != nil {
			return err
		}

		order.ID = 0
		order.OrderNumber = next()
		err := db.Omit(clause.Associations).Create(order).Error
		if err == nil {
			return nil
		}
		if !isDuplicate(err) {
			return err
		}

		if err := db.RollbackTo(sp).Error; err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: order number after %d attempts", ErrDuplicate, attempts)
}

func (r *GormRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&items).Error
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := withItems(r.DB.WithContext(ctx)).First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormRepo) GetOrderForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := withItems(r.DB.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormRepo) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order
	err := withItems(r.DB.WithContext(ctx)).
		Where("order_number = ?", number).
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormRepo) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := withItems(q).
		Order("order_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(order_number) LIKE ? OR LOWER(shipping_name) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := q.Order("order_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormRepo) UpdateOrder(ctx context.Context, id uint, updates map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats sums paid orders only. dayStart bounds the "today" window.
func (r *GormRepo) Stats(ctx context.Context, dayStart time.Time) (OrderStats, error) {
	var st OrderStats
	row := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Select(
			"COUNT(*), "+
				"COUNT(CASE WHEN status = ? THEN 1 END), "+
				"COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0), "+
				"COALESCE(SUM(CASE WHEN payment_status = ? AND order_date >= ? THEN total_amount ELSE 0 END), 0)",
			models.StatusPending, models.PaymentPaid, models.PaymentPaid, dayStart,
		).Row()
	if err := row.Err(); err != nil {
		return st, err
	}
	if err := row.Scan(&st.TotalOrders, &st.PendingOrders, &st.TotalRevenue, &st.TodayRevenue); err != nil {
		return st, err
	}
	st.TotalRevenue = st.TotalRevenue.Round(2)
	st.TodayRevenue = st.TodayRevenue.Round(2)
	return st, nil
}
