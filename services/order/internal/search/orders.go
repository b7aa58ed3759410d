package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
)

const DefaultIndex = "orders"

const orderMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "long"},
      "order_number":     {"type": "keyword", "fields": {"text": {"type": "text"}}},
      "user_id":          {"type": "keyword"},
      "status":           {"type": "keyword"},
      "payment_status":   {"type": "keyword"},
      "shipping_name":    {"type": "text"},
      "shipping_city":    {"type": "text"},
      "shipping_country": {"type": "keyword"},
      "product_names":    {"type": "text"},
      "total_amount":     {"type": "scaled_float", "scaling_factor": 100},
      "order_date":       {"type": "date"}
    }
  }
}`

type OrderDoc struct {
	ID              uint      `json:"id"`
	OrderNumber     string    `json:"order_number"`
	UserID          string    `json:"user_id"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	ShippingName    string    `json:"shipping_name"`
	ShippingCity    string    `json:"shipping_city"`
	ShippingCountry string    `json:"shipping_country"`
	ProductNames    []string  `json:"product_names"`
	TotalAmount     float64   `json:"total_amount"`
	OrderDate       time.Time `json:"order_date"`
}

func NewOrderDoc(o *models.Order) OrderDoc {
	names := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		names = append(names, it.ProductName)
	}
	return OrderDoc{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID.String(),
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		ShippingName:    o.ShippingName,
		ShippingCity:    o.ShippingCity,
		ShippingCountry: o.ShippingCountry,
		ProductNames:    names,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		OrderDate:       o.OrderDate,
	}
}

type OrderIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewOrderIndex(es *elasticsearch.Client, index string) *OrderIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &OrderIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *OrderIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("index exists %s: %s", x.index, res.Status())
	}

	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(ctx),
		x.es.Indices.Create.WithBody(strings.NewReader(orderMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index %s: %s: %s", x.index, res.Status(), body)
	}
	return nil
}

func (x *OrderIndex) IndexOrder(ctx context.Context, o *models.Order) error {
	body, err := json.Marshal(NewOrderDoc(o))
	if err != nil {
		return fmt.Errorf("marshal order doc: %w", err)
	}

	res, err := x.es.Index(x.index, bytes.NewReader(body),
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(strconv.FormatUint(uint64(o.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index order %d: %w", o.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index order %d: %s", o.ID, res.Status())
	}
	return nil
}

func (x *OrderIndex) SearchOrders(ctx context.Context, query string, from, size int) ([]uint, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []uint{}, 0, nil
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"order_number.text^3", "shipping_name^2", "product_names", "shipping_city"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, 0, fmt.Errorf("encode search: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search orders: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search orders: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source struct {
					ID uint `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("decode search: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, r.Hits.Total.Value, nil
}
