package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
)

type AddCartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateCartItemResponse struct {
	Item    *models.CartItem `json:"item,omitempty"`
	Removed bool             `json:"removed"`
}

type CartCountResponse struct {
	Count int `json:"count"`
}

type PlaceOrderRequest struct {
	ShippingName       string `json:"shipping_name"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingCountry    string `json:"shipping_country"`
	ShippingPhone      string `json:"shipping_phone"`
	PaymentMethod      string `json:"payment_method"`
	Notes              string `json:"notes"`
}

func (r PlaceOrderRequest) Details() service.ShippingDetails {
	return service.ShippingDetails{
		Name:          r.ShippingName,
		Address:       r.ShippingAddress,
		City:          r.ShippingCity,
		PostalCode:    r.ShippingPostalCode,
		Country:       r.ShippingCountry,
		Phone:         r.ShippingPhone,
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
	}
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

type CreateProductRequest struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	SKU           string           `json:"sku"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	StockQuantity int              `json:"stock_quantity"`
	IsActive      *bool            `json:"is_active"`
}

func (r CreateProductRequest) Product() *models.Product {
	p := &models.Product{
		Name:          r.Name,
		Description:   r.Description,
		SKU:           r.SKU,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		IsActive:      true,
	}
	if r.DiscountPrice != nil {
		p.DiscountPrice = decimal.NewNullDecimal(*r.DiscountPrice)
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

type PatchProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	ClearDiscount bool             `json:"clear_discount"`
	StockQuantity *int             `json:"stock_quantity"`
	IsActive      *bool            `json:"is_active"`
}

func (r PatchProductRequest) Patch() service.ProductPatch {
	return service.ProductPatch{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		ClearDiscount: r.ClearDiscount,
		StockQuantity: r.StockQuantity,
		IsActive:      r.IsActive,
	}
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type OrderListResponse struct {
	Data []models.Order `json:"data"`
	Meta PageMeta       `json:"meta"`
}

func NewOrderListResponse(p *service.OrderPage) OrderListResponse {
	items := p.Items
	if items == nil {
		items = []models.Order{}
	}
	size := int64(p.PageSize)
	return OrderListResponse{
		Data: items,
		Meta: PageMeta{
			Page:       p.Page,
			Size:       p.PageSize,
			Total:      p.Total,
			TotalPages: (p.Total + size - 1) / size,
			HasPrev:    p.Page > 1,
			HasNext:    int64(p.Page)*size < p.Total,
		},
	}
}
