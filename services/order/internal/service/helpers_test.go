package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo/repotest"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event.(map[string]any)})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type failingGateway struct{}

func (failingGateway) Capture(context.Context, *models.Order) (string, error) {
	return "", errors.New("card declined")
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uint]models.Order
	hits    []uint
}

func (f *fakeIndex) IndexOrder(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[uint]models.Order{}
	}
	f.indexed[o.ID] = *o
	return nil
}

func (f *fakeIndex) SearchOrders(_ context.Context, _ string, from, size int) ([]uint, int64, error) {
	end := min(from+size, len(f.hits))
	if from > end {
		from = end
	}
	return f.hits[from:end], int64(len(f.hits)), nil
}

type env struct {
	repo   *repo.GormRepo
	cart   *CartService
	orders *OrderService
	events *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()

	r := repotest.NewRepo(t)
	events := &recordingPublisher{}
	engine := pricing.New(pricing.DefaultConfig())

	return &env{
		repo:   r,
		events: events,
		cart:   &CartService{Repo: r, Pricing: engine, Events: events},
		orders: &OrderService{Repo: r, Pricing: engine, Events: events, Gateway: SimulatedGateway{}},
	}
}

func (e *env) add(t *testing.T, userID uuid.UUID, productID uint, qty int) *models.CartItem {
	t.Helper()
	line, err := e.cart.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
	return line
}

func validDetails() ShippingDetails {
	return ShippingDetails{
		Name:          "Ada Lovelace",
		Address:       "12 Marylebone Rd",
		City:          "London",
		PostalCode:    "NW1 5LR",
		Country:       "UK",
		PaymentMethod: "card",
	}
}
