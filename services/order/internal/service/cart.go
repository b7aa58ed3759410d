package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
)

// addAttempts bounds the retry of a first insert that lost the unique index
// race to a concurrent add of the same product.
const addAttempts = 3

type CartService struct {
	Repo    *repo.GormRepo
	Pricing *pricing.Engine
	Events  EventPublisher
	Now     func() time.Time
}

type CartLineView struct {
	ID            uint            `json:"id"`
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ListPrice     decimal.Decimal `json:"list_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
	StockQuantity int             `json:"stock_quantity"`
	Available     bool            `json:"available"`
	AddedAt       time.Time       `json:"added_at"`
}

type CartView struct {
	Items     []CartLineView  `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID uint, qty int) (*models.CartItem, error) {
	l := logging.FromContext(ctx).With("svc", "cart")

	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if productID == 0 {
		return nil, fmt.Errorf("%w: product id is required", ErrValidation)
	}

	var (
		line *models.CartItem
		err  error
	)
	for attempt := 1; attempt <= addAttempts; attempt++ {
		line, err = s.addItemOnce(ctx, userID, productID, qty)
		if !errors.Is(err, repo.ErrDuplicate) {
			break
		}
		l.Debug("add_item_retry", "attempt", attempt, "product_id", productID)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, fmt.Errorf("%w: cart line is being modified concurrently", ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(), map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID.String(),
		"product_id": productID,
		"added":      qty,
		"quantity":   line.Quantity,
	})
	return line, nil
}

func (s *CartService) addItemOnce(ctx context.Context, userID uuid.UUID, productID uint, qty int) (*models.CartItem, error) {
	var line *models.CartItem

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		// Cart line before product, the same order checkout locks in.
		existing, err := tx.GetCartLineForUpdate(ctx, userID, productID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		p, err := s.lockAvailableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		want := qty
		if existing != nil {
			want += existing.Quantity
		}
		if want > p.StockQuantity {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, want, p.StockQuantity)
		}

		now := s.now()
		if existing != nil {
			if err := tx.SetCartLineQuantity(ctx, existing, want, now); err != nil {
				return err
			}
			line = existing
			return nil
		}

		item := &models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			AddedAt:   now,
			UpdatedAt: &now,
		}
		if err := tx.CreateCartLine(ctx, item); err != nil {
			return err
		}
		line = item
		return nil
	})
	return line, err
}

// UpdateItem overwrites the quantity of a line. A quantity of zero or less
// removes the line and reports removed=true with a nil line.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, lineID uint, qty int) (*models.CartItem, bool, error) {
	var (
		line    *models.CartItem
		removed bool
	)

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		existing, err := tx.GetCartLineByIDForUpdate(ctx, userID, lineID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: cart line %d", ErrNotFound, lineID)
		}
		if err != nil {
			return err
		}

		if qty <= 0 {
			removed, err = tx.DeleteCartLine(ctx, userID, lineID)
			return err
		}

		p, err := s.lockAvailableProduct(ctx, tx, existing.ProductID)
		if err != nil {
			return err
		}
		if qty > p.StockQuantity {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, p.StockQuantity)
		}

		if err := tx.SetCartLineQuantity(ctx, existing, qty, s.now()); err != nil {
			return err
		}
		line = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if removed {
		publish(ctx, s.Events, TopicCartEvents, userID.String(), map[string]any{
			"type":    "cart_item_removed",
			"user_id": userID.String(),
			"line_id": lineID,
		})
		return nil, true, nil
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(), map[string]any{
		"type":       "cart_item_updated",
		"user_id":    userID.String(),
		"product_id": line.ProductID,
		"quantity":   line.Quantity,
	})
	return line, false, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, lineID uint) (bool, error) {
	deleted, err := s.Repo.DeleteCartLine(ctx, userID, lineID)
	if err != nil {
		return false, err
	}
	if deleted {
		publish(ctx, s.Events, TopicCartEvents, userID.String(), map[string]any{
			"type":    "cart_item_removed",
			"user_id": userID.String(),
			"line_id": lineID,
		})
	}
	return deleted, nil
}

// ClearCart reports false when the cart was already empty.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.Repo.ClearCart(ctx, userID)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(), map[string]any{
		"type":    "cart_cleared",
		"user_id": userID.String(),
		"lines":   n,
	})
	return true, nil
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	lines, err := s.Repo.ListCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: make([]CartLineView, 0, len(lines))}
	priced := make([]pricing.Line, 0, len(lines))
	for _, ln := range lines {
		p, ok := products[ln.ProductID]
		price := p.PriceInfo()
		view.Items = append(view.Items, CartLineView{
			ID:            ln.ID,
			ProductID:     ln.ProductID,
			ProductName:   p.Name,
			ListPrice:     price.List,
			UnitPrice:     price.Current(),
			Quantity:      ln.Quantity,
			LineTotal:     pricing.LineTotal(price.Current(), ln.Quantity),
			StockQuantity: p.StockQuantity,
			Available:     ok && p.IsActive && p.StockQuantity >= ln.Quantity,
			AddedAt:       ln.AddedAt,
		})
		priced = append(priced, pricing.Line{ProductID: ln.ProductID, Quantity: ln.Quantity})
		view.ItemCount += ln.Quantity
	}

	totals := s.Pricing.ComputeTotals(priced, func(id uint) pricing.Price {
		return products[id].PriceInfo()
	}).Rounded()
	view.Subtotal = totals.Subtotal
	view.Shipping = totals.Shipping
	view.Tax = totals.Tax
	view.Total = totals.Total
	return view, nil
}

func (s *CartService) GetItemCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.Repo.CartItemCount(ctx, userID)
}

func (s *CartService) lockAvailableProduct(ctx context.Context, tx *repo.GormRepo, productID uint) (*models.Product, error) {
	p, err := tx.GetProductForUpdate(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d not found", ErrProductUnavailable, productID)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product %d is inactive", ErrProductUnavailable, productID)
	}
	return p, nil
}
