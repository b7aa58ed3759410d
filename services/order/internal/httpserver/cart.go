package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopsana/pkg/logging"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
	"github.com/Skotchmaster/shopsana/services/order/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}

	view, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) GetCount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_count")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "get_cart_count_error", err)
	}

	n, err := h.Svc.GetItemCount(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_count_error", err)
	}
	return c.JSON(http.StatusOK, transport.CartCountResponse{Count: n})
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	line, err := h.Svc.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "quantity", line.Quantity)
	return c.JSON(http.StatusOK, line)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "update_item_error", err)
	}
	lineID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	line, removed, err := h.Svc.UpdateItem(ctx, userID, lineID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_error", err)
	}

	l.Info("update_item_success", "line_id", lineID, "removed", removed)
	return c.JSON(http.StatusOK, transport.UpdateCartItemResponse{Item: line, Removed: removed})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	lineID, err := uintParam(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.Svc.RemoveItem(ctx, userID, lineID); err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear_cart")

	userID, err := userIDFrom(c)
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}

	if _, err := h.Svc.ClearCart(ctx, userID); err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
