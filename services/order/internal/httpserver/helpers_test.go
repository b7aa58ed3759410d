package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopsana/pkg/tokens"
	"github.com/Skotchmaster/shopsana/services/order/internal/idempotency"
	"github.com/Skotchmaster/shopsana/services/order/internal/models"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo/repotest"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	orders *service.OrderService
	guard  *idempotency.RedisGuard
	mr     *miniredis.Miniredis
	deps   *Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := repotest.NewRepo(t)
	engine := pricing.New(pricing.DefaultConfig())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	guard := idempotency.NewRedisGuard(rdb, time.Hour)

	orders := &service.OrderService{Repo: r, Pricing: engine, Gateway: service.SimulatedGateway{}}
	deps := &Deps{
		Cart:      &CartHTTP{Svc: &service.CartService{Repo: r, Pricing: engine}},
		Orders:    &OrderHTTP{Svc: orders, Guard: guard},
		Admin:     &AdminHTTP{Svc: orders},
		Catalog:   &CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		JWTSecret: testSecret,
		Ready:     r.Ping,
	}

	e := echo.New()
	Register(e, deps)
	return &testEnv{e: e, repo: r, orders: orders, guard: guard, mr: mr, deps: deps}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(userID.String(), role, time.Now().Add(time.Hour), testSecret)
	require.NoError(t, err)
	return tok
}

func (env *testEnv) do(t *testing.T, method, path string, body any, tok string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) seed(t *testing.T, price string, stock int) *models.Product {
	t.Helper()
	return repotest.SeedProduct(t, env.repo, "item-"+price, price, stock)
}

func (env *testEnv) fillCart(t *testing.T, tok string, productID uint, qty int) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": productID, "quantity": qty}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func shipping() map[string]any {
	return map[string]any{
		"shipping_name":        "Grace Hopper",
		"shipping_address":     "1 Navy Yard",
		"shipping_city":        "Arlington",
		"shipping_postal_code": "22202",
		"shipping_country":     "US",
		"payment_method":       "card",
	}
}
