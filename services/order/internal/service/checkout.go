package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
)

const orderNumberAttempts = 5

var paymentMethods = []string{"card", "paypal", "cash_on_delivery"}

type ShippingDetails struct {
	Name          string
	Address       string
	City          string
	PostalCode    string
	Country       string
	Phone         string
	PaymentMethod string
	Notes         string
}

func (d *ShippingDetails) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.PostalCode = strings.TrimSpace(d.PostalCode)
	d.Country = strings.TrimSpace(d.Country)
	d.Phone = strings.TrimSpace(d.Phone)
	d.PaymentMethod = strings.ToLower(strings.TrimSpace(d.PaymentMethod))
	d.Notes = strings.TrimSpace(d.Notes)
}

func (d ShippingDetails) Validate() error {
	fields := []struct {
		name     string
		value    string
		max      int
		required bool
	}{
		{"shipping_name", d.Name, 200, true},
		{"shipping_address", d.Address, 500, true},
		{"shipping_city", d.City, 100, true},
		{"shipping_postal_code", d.PostalCode, 50, true},
		{"shipping_country", d.Country, 100, true},
		{"shipping_phone", d.Phone, 32, false},
		{"notes", d.Notes, 500, false},
	}
	for _, f := range fields {
		if f.required && f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, f.name, f.max)
		}
	}

	if d.PaymentMethod == "" {
		return fmt.Errorf("%w: payment_method is required", ErrValidation)
	}
	if !slices.Contains(paymentMethods, d.PaymentMethod) {
		return fmt.Errorf("%w: unsupported payment_method %q", ErrValidation, d.PaymentMethod)
	}
	return nil
}

// PaymentGateway captures payment for an order that has already been
// committed. Capture happens outside the stock transaction.
type PaymentGateway interface {
	Capture(ctx context.Context, order *models.Order) (transactionID string, err error)
}

// SimulatedGateway approves every capture immediately.
type SimulatedGateway struct {
	Now func() time.Time
}

func (g SimulatedGateway) Capture(_ context.Context, order *models.Order) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return fmt.Sprintf("TXN-%s-%d", now().UTC().Format("20060102150405"), order.ID), nil
}

// NewOrderNumber returns ORD-<UTC date>-<8 upper hex chars>.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

type OrderService struct {
	Repo    *repo.GormRepo
	Pricing *pricing.Engine
	Events  EventPublisher
	Index   OrderIndex
	Gateway PaymentGateway

	Now func() time.Time
	// NextOrderNumber overrides NewOrderNumber.
	NextOrderNumber func() string
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) nextNumber() string {
	if s.NextOrderNumber != nil {
		return s.NextOrderNumber()
	}
	return NewOrderNumber(s.now())
}

// PlaceOrder turns the user's cart into an order. Everything up to and
// including the cart clear happens in one transaction; on any error no
// order exists and stock and cart are unchanged.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, details ShippingDetails) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order")

	details.normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		var err error
		order, err = s.assemble(ctx, tx, userID, details)
		return err
	})
	if err != nil {
		l.Info("place_order_rejected", "user_id", userID, "error", err)
		return nil, err
	}

	s.capturePayment(ctx, order)

	l.Info("order_placed", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.TotalAmount.StringFixed(2))
	publish(ctx, s.Events, TopicOrderEvents, userID.String(), map[string]any{
		"type":           "order_placed",
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"user_id":        userID.String(),
		"total_amount":   order.TotalAmount.StringFixed(2),
		"payment_status": order.PaymentStatus,
		"items":          len(order.Items),
	})
	s.index(ctx, order)

	return order, nil
}

func (s *OrderService) assemble(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, d ShippingDetails) (*models.Order, error) {
	lines, err := tx.ListCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uint, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products, err := tx.GetProductsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	priced := make([]pricing.Line, 0, len(lines))
	for _, ln := range lines {
		p, ok := products[ln.ProductID]
		if !ok || !p.IsActive {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, ln.ProductID)
		}
		if p.StockQuantity < ln.Quantity {
			return nil, fmt.Errorf("%w: %s has %d left, %d requested", ErrInsufficientStock, p.Name, p.StockQuantity, ln.Quantity)
		}
		priced = append(priced, pricing.Line{ProductID: ln.ProductID, Quantity: ln.Quantity})
	}

	totals := s.Pricing.ComputeTotals(priced, func(id uint) pricing.Price {
		return products[id].PriceInfo()
	}).Rounded()

	order := &models.Order{
		UserID:             userID,
		Subtotal:           totals.Subtotal,
		ShippingCost:       totals.Shipping,
		Tax:                totals.Tax,
		TotalAmount:        totals.Total,
		Status:             models.StatusPending,
		PaymentStatus:      models.PaymentPending,
		PaymentMethod:      d.PaymentMethod,
		ShippingName:       d.Name,
		ShippingAddress:    d.Address,
		ShippingCity:       d.City,
		ShippingPostalCode: d.PostalCode,
		ShippingCountry:    d.Country,
		ShippingPhone:      optional(d.Phone),
		Notes:              optional(d.Notes),
		OrderDate:          s.now(),
	}
	if err := tx.CreateOrderWithUniqueNumber(ctx, order, s.nextNumber, orderNumberAttempts); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, ln := range lines {
		p := products[ln.ProductID]
		price := p.PriceInfo()
		unit := price.Current()
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   unit,
			Quantity:    ln.Quantity,
			Discount:    price.DiscountAmount(),
			LineTotal:   pricing.LineTotal(unit, ln.Quantity),
		})
	}
	if err := tx.CreateOrderItems(ctx, items); err != nil {
		return nil, err
	}
	order.Items = items

	for _, ln := range lines {
		ok, err := tx.DecrementStock(ctx, ln.ProductID, ln.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, ln.ProductID)
		}
	}

	if _, err := tx.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	return order, nil
}

// capturePayment runs after commit. A failed capture leaves the order in
// place with payment_status=failed so it can be retried.
func (s *OrderService) capturePayment(ctx context.Context, order *models.Order) {
	l := logging.FromContext(ctx).With("svc", "order")
	if s.Gateway == nil {
		return
	}

	updates := map[string]any{}
	txnID, captureErr := s.Gateway.Capture(ctx, order)
	if captureErr != nil {
		l.Warn("payment_capture_error", "order_id", order.ID, "error", captureErr)
		updates["payment_status"] = models.PaymentFailed
	} else {
		updates["payment_status"] = models.PaymentPaid
		updates["transaction_id"] = txnID
	}

	if err := s.Repo.UpdateOrder(context.WithoutCancel(ctx), order.ID, updates); err != nil {
		l.Error("payment_status_persist_error", "order_id", order.ID, "error", err)
		return
	}
	order.PaymentStatus = updates["payment_status"].(models.PaymentStatus)
	if captureErr == nil {
		order.TransactionID = &txnID
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
