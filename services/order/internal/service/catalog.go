package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
)

const TopicProductEvents = "product_events"

// CatalogService is the small admin surface over products that checkout
// reads from. Browsing and listing are served by the storefront.
type CatalogService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	DiscountPrice *decimal.Decimal
	ClearDiscount bool
	StockQuantity *int
	IsActive      *bool
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return p, err
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return err
	}

	publish(ctx, s.Events, TopicProductEvents, fmt.Sprint(p.ID), map[string]any{
		"type":       "product_created",
		"product_id": p.ID,
		"name":       p.Name,
	})
	return nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	next := *current
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
		updates["name"] = next.Name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
		updates["description"] = next.Description
	}
	if patch.Price != nil {
		next.Price = *patch.Price
		updates["price"] = next.Price
	}
	if patch.ClearDiscount {
		next.DiscountPrice = decimal.NullDecimal{}
		updates["discount_price"] = nil
	} else if patch.DiscountPrice != nil {
		next.DiscountPrice = decimal.NewNullDecimal(*patch.DiscountPrice)
		updates["discount_price"] = next.DiscountPrice
	}
	if patch.StockQuantity != nil {
		next.StockQuantity = *patch.StockQuantity
		updates["stock_quantity"] = next.StockQuantity
	}
	if patch.IsActive != nil {
		next.IsActive = *patch.IsActive
		updates["is_active"] = next.IsActive
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := validateProduct(&next); err != nil {
		return nil, err
	}

	p, err := s.Repo.PatchProduct(ctx, id, updates)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicProductEvents, fmt.Sprint(p.ID), map[string]any{
		"type":       "product_updated",
		"product_id": p.ID,
	})
	return p, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case utf8.RuneCountInString(p.Name) > 200:
		return fmt.Errorf("%w: name must be at most 200 characters", ErrValidation)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	case !isCents(p.Price):
		return fmt.Errorf("%w: price must have at most 2 decimal places", ErrValidation)
	case p.DiscountPrice.Valid && !isCents(p.DiscountPrice.Decimal):
		return fmt.Errorf("%w: discount_price must have at most 2 decimal places", ErrValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock_quantity cannot be negative", ErrValidation)
	case p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsNegative():
		return fmt.Errorf("%w: discount_price cannot be negative", ErrValidation)
	}
	return nil
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
