package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
)

type Product struct {
	ID            uint                `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Name          string              `gorm:"size:200;not null"                         json:"name"`
	Description   string              `gorm:"size:2000"                                 json:"description"`
	SKU           string              `gorm:"size:100"                                  json:"sku,omitempty"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null"               json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"                        json:"discount_price"`
	StockQuantity int                 `gorm:"not null;check:stock_quantity >= 0"        json:"stock_quantity"`
	IsActive      bool                `gorm:"not null"                                  json:"is_active"`
	CreatedAt     time.Time           `                                                 json:"created_at"`
	UpdatedAt     time.Time           `                                                 json:"updated_at"`
}

func (p Product) PriceInfo() pricing.Price {
	return pricing.Price{List: p.Price, Discount: p.DiscountPrice}
}

func (Product) TableName() string {
	return "products"
}

type CartItem struct {
	ID        uint       `gorm:"primaryKey"                                         json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_cart_user_product;not null" json:"user_id"`
	ProductID uint       `gorm:"uniqueIndex:idx_cart_user_product;not null"          json:"product_id"`
	Quantity  int        `gorm:"not null;check:quantity > 0"                         json:"quantity"`
	AddedAt   time.Time  `gorm:"autoCreateTime"                                      json:"added_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"                                json:"updated_at,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

type Order struct {
	ID                 uint            `gorm:"primaryKey"                      json:"id"`
	OrderNumber        string          `gorm:"size:32;uniqueIndex;not null"    json:"order_number"`
	UserID             uuid.UUID       `gorm:"type:uuid;index;not null"        json:"user_id"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"subtotal"`
	ShippingCost       decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"shipping_cost"`
	Tax                decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"tax"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"total_amount"`
	Status             OrderStatus     `gorm:"size:16;not null;index"          json:"status"`
	PaymentStatus      PaymentStatus   `gorm:"size:16;not null"                json:"payment_status"`
	PaymentMethod      string          `gorm:"size:32;not null"                json:"payment_method"`
	ShippingName       string          `gorm:"size:200;not null"               json:"shipping_name"`
	ShippingAddress    string          `gorm:"size:500;not null"               json:"shipping_address"`
	ShippingCity       string          `gorm:"size:100;not null"               json:"shipping_city"`
	ShippingPostalCode string          `gorm:"size:50;not null"                json:"shipping_postal_code"`
	ShippingCountry    string          `gorm:"size:100;not null"               json:"shipping_country"`
	ShippingPhone      *string         `gorm:"size:32"                         json:"shipping_phone,omitempty"`
	Notes              *string         `gorm:"size:500"                        json:"notes,omitempty"`
	OrderDate          time.Time       `gorm:"not null;index"                  json:"order_date"`
	ShippedDate        *time.Time      `                                       json:"shipped_date,omitempty"`
	DeliveredDate      *time.Time      `                                       json:"delivered_date,omitempty"`
	TransactionID      *string         `gorm:"size:64"                         json:"transaction_id,omitempty"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID"              json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem holds values frozen at checkout; it never reads the catalog again.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey"                  json:"id"`
	OrderID     uint            `gorm:"index;not null"              json:"order_id"`
	ProductID   uint            `gorm:"index;not null"              json:"product_id"`
	ProductName string          `gorm:"size:200;not null"           json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
