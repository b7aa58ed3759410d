// Package pricing computes cart and order totals.
//
// All arithmetic is done on decimal values without intermediate rounding.
// Callers round with Totals.Rounded when a value is shown or persisted.
package pricing

import "github.com/shopspring/decimal"

type Config struct {
	ShippingThreshold decimal.Decimal
	ShippingFee       decimal.Decimal
	TaxRate           decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		ShippingThreshold: decimal.RequireFromString("50.00"),
		ShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:           decimal.RequireFromString("0.10"),
	}
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Price is the catalog price of a product. Discount is used only when it is
// set and strictly lower than List.
type Price struct {
	List     decimal.Decimal
	Discount decimal.NullDecimal
}

func (p Price) Current() decimal.Decimal {
	if p.Discount.Valid && p.Discount.Decimal.LessThan(p.List) {
		return p.Discount.Decimal
	}
	return p.List
}

// DiscountAmount is the per-unit reduction from the list price.
func (p Price) DiscountAmount() decimal.Decimal {
	return p.List.Sub(p.Current())
}

type Line struct {
	ProductID uint
	Quantity  int
}

type PriceLookup func(productID uint) Price

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Total:    t.Total.Round(2),
	}
}

func (e *Engine) ComputeTotals(lines []Line, lookup PriceLookup) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(lookup(l.ProductID).Current(), l.Quantity))
	}
	return e.FromSubtotal(subtotal)
}

func (e *Engine) FromSubtotal(subtotal decimal.Decimal) Totals {
	shipping := e.cfg.ShippingFee
	if subtotal.GreaterThanOrEqual(e.cfg.ShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(e.cfg.TaxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
