package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/shopsana/pkg/middleware/auth"
)

type Deps struct {
	Cart    *CartHTTP
	Orders  *OrderHTTP
	Admin   *AdminHTTP
	Catalog *CatalogHTTP

	JWTSecret []byte
	// Ready reports whether the database answers.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewJWTMiddleware(d.JWTSecret)
	api := e.Group("/api/v1")

	api.GET("/products/:id", d.Catalog.GetProduct)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.GET("/count", d.Cart.GetCount)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:id", d.Cart.UpdateItem)
	cart.DELETE("/items/:id", d.Cart.RemoveItem)
	cart.DELETE("", d.Cart.ClearCart)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.Orders.PlaceOrder)
	orders.GET("", d.Orders.ListOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.GET("/number/:number", d.Orders.GetOrderByNumber)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.GET("/orders", d.Admin.ListOrders)
	admin.GET("/orders/search", d.Admin.SearchOrders)
	admin.GET("/orders/stats", d.Admin.Stats)
	admin.PATCH("/orders/:id/status", d.Admin.UpdateStatus)
	admin.PATCH("/orders/:id/payment", d.Admin.UpdatePaymentStatus)
	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PATCH("/products/:id", d.Catalog.PatchProduct)
}
