package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
)

// UpdateStatus moves an order along the status table. Setting the current
// status again is a no-op. Cancelling returns every line's quantity to stock
// and refunds a paid order in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order")

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		if err != nil {
			return err
		}
		from = o.Status

		if o.Status == status {
			order = o
			return nil
		}
		if !o.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}

		now := s.now()
		updates := map[string]any{"status": status}
		switch status {
		case models.StatusShipped:
			updates["shipped_date"] = now
		case models.StatusDelivered:
			updates["delivered_date"] = now
		case models.StatusCancelled:
			for _, it := range o.Items {
				if err := tx.RestockProduct(ctx, it.ProductID, it.Quantity); err != nil && !errors.Is(err, repo.ErrNotFound) {
					return err
				}
			}
			if o.PaymentStatus == models.PaymentPaid {
				updates["payment_status"] = models.PaymentRefunded
			}
		}

		if err := tx.UpdateOrder(ctx, o.ID, updates); err != nil {
			return err
		}
		order, err = tx.GetOrder(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from == status {
		return order, nil
	}

	l.Info("order_status_changed", "order_id", order.ID, "from", from, "to", status)
	publish(ctx, s.Events, TopicOrderEvents, order.UserID.String(), map[string]any{
		"type":           "order_status_changed",
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"from":           from,
		"to":             status,
		"payment_status": order.PaymentStatus,
	})
	s.index(ctx, order)
	return order, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uint, status models.PaymentStatus) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order")

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}

	var (
		order *models.Order
		from  models.PaymentStatus
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		if err != nil {
			return err
		}
		from = o.PaymentStatus

		if o.PaymentStatus == status {
			order = o
			return nil
		}
		if !o.PaymentStatus.CanTransitionTo(status) {
			return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.PaymentStatus, status)
		}

		if err := tx.UpdateOrder(ctx, o.ID, map[string]any{"payment_status": status}); err != nil {
			return err
		}
		order, err = tx.GetOrder(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from == status {
		return order, nil
	}

	l.Info("payment_status_changed", "order_id", order.ID, "from", from, "to", status)
	publish(ctx, s.Events, TopicOrderEvents, order.UserID.String(), map[string]any{
		"type":         "payment_status_changed",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"from":         from,
		"to":           status,
	})
	s.index(ctx, order)
	return order, nil
}
