package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
)

func (r *GormRepo) ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListCartForUpdate(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCartLineForUpdate(ctx context.Context, userID uuid.UUID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) GetCartLineByIDForUpdate(ctx context.Context, userID uuid.UUID, lineID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", lineID, userID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) CreateCartLine(ctx context.Context, item *models.CartItem) error {
	return translate(r.DB.WithContext(ctx).Create(item).Error)
}

func (r *GormRepo) SetCartLineQuantity(ctx context.Context, item *models.CartItem, qty int, now time.Time) error {
	err := r.DB.WithContext(ctx).
		Model(item).
		Updates(map[string]any{"quantity": qty, "updated_at": now}).Error
	if err != nil {
		return err
	}
	item.Quantity = qty
	item.UpdatedAt = &now
	return nil
}

func (r *GormRepo) DeleteCartLine(ctx context.Context, userID uuid.UUID, lineID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CartItemCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
