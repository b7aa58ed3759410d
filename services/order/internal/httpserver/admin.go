package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
	"github.com/Skotchmaster/shopsana/services/order/internal/transport"
	"github.com/Skotchmaster/shopsana/services/order/internal/util"
)

type AdminHTTP struct {
	Svc *service.OrderService
}

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	filter := repo.OrderFilter{
		Status: models.OrderStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.ListOrders(ctx, filter, page, size)
	if err != nil {
		return fail(l, "admin_list_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderListResponse(res))
}

func (h *AdminHTTP) SearchOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.search_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.SearchOrders(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "admin_search_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderListResponse(res))
}

func (h *AdminHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.stats")

	st, err := h.Svc.Stats(ctx)
	if err != nil {
		return fail(l, "admin_stats_error", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *AdminHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_status")

	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("update_status_success", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *AdminHTTP) UpdatePaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_payment_status")

	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdatePaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_payment_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdatePaymentStatus(ctx, id, req.PaymentStatus)
	if err != nil {
		return fail(l, "update_payment_status_error", err)
	}

	l.Info("update_payment_status_success", "order_id", id, "payment_status", order.PaymentStatus)
	return c.JSON(http.StatusOK, order)
}
