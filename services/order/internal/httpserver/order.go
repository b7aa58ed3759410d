package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/idempotency"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
	"github.com/Skotchmaster/shopsana/services/order/internal/transport"
	"github.com/Skotchmaster/shopsana/services/order/internal/util"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

type OrderHTTP struct {
	Svc   *service.OrderService
	Guard idempotency.Guard
}

func (h *OrderHTTP) guard() idempotency.Guard {
	if h.Guard == nil {
		return idempotency.Nop{}
	}
	return h.Guard
}

func (h *OrderHTTP) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place_order")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "place_order_error", err)
	}

	var req transport.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("place_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency key is too long")
	}
	if key != "" {
		prev, err := h.guard().Begin(ctx, userID.String(), key)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			return fail(l, "place_order_error", err)
		case err != nil:
			l.Warn("idempotency_unavailable", "error", err)
			key = ""
		case prev != "":
			order, err := h.Svc.GetOrderByNumber(ctx, prev)
			if err != nil {
				return fail(l, "place_order_error", err)
			}
			l.Info("place_order_replayed", "order_number", prev)
			return c.JSON(http.StatusOK, order)
		}
	}

	order, err := h.Svc.PlaceOrder(ctx, userID, req.Details())
	if err != nil {
		if key != "" {
			if aerr := h.guard().Abort(ctx, userID.String(), key); aerr != nil {
				l.Warn("idempotency_abort_error", "error", aerr)
			}
		}
		return fail(l, "place_order_error", err)
	}

	if key != "" {
		if err := h.guard().Complete(ctx, userID.String(), key, order.OrderNumber); err != nil {
			l.Warn("idempotency_complete_error", "error", err)
		}
	}

	l.Info("place_order_success", "order_number", order.OrderNumber)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.ListUserOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderListResponse(res))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return h.ownedOrder(c, order)
}

func (h *OrderHTTP) GetOrderByNumber(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order_by_number")

	order, err := h.Svc.GetOrderByNumber(ctx, c.Param("number"))
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return h.ownedOrder(c, order)
}

// ownedOrder hides orders of other users behind a 404.
func (h *OrderHTTP) ownedOrder(c echo.Context, order *models.Order) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if order.UserID != userID && !isAdmin(c) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, order)
}
