package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	pkgconfig "github.com/Skotchmaster/shopsana/pkg/config"
	"github.com/Skotchmaster/shopsana/pkg/db"
	"github.com/Skotchmaster/shopsana/pkg/logging"
	loggingmw "github.com/Skotchmaster/shopsana/pkg/middleware/logging"
	"github.com/Skotchmaster/shopsana/pkg/mykafka"
	"github.com/Skotchmaster/shopsana/services/order/internal/config"
	"github.com/Skotchmaster/shopsana/services/order/internal/httpserver"
	"github.com/Skotchmaster/shopsana/services/order/internal/idempotency"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/repo"
	"github.com/Skotchmaster/shopsana/services/order/internal/search"
	"github.com/Skotchmaster/shopsana/services/order/internal/service"
)

func main() {
	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service_stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.ServiceConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("db_close_error", "error", err)
		}
	}()

	if err := repo.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	Repo := repo.New(gdb)

	var events service.EventPublisher = service.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		events = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var guard idempotency.Guard = idempotency.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(initCtx).Err(); err != nil {
			logger.Warn("redis_ping_error", "error", err)
		}
		guard = idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)
	}

	engine := pricing.New(cfg.Pricing)
	orders := &service.OrderService{
		Repo:    Repo,
		Pricing: engine,
		Events:  events,
		Gateway: service.SimulatedGateway{},
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(initCtx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESOrderIndex,
		})
		if err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
		idx := search.NewOrderIndex(es, cfg.ESOrderIndex)
		if err := idx.EnsureIndex(initCtx); err != nil {
			return fmt.Errorf("elasticsearch index: %w", err)
		}
		orders.Index = idx
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORS())

	httpserver.Register(e, &httpserver.Deps{
		Cart: &httpserver.CartHTTP{Svc: &service.CartService{
			Repo:    Repo,
			Pricing: engine,
			Events:  events,
		}},
		Orders:  &httpserver.OrderHTTP{Svc: orders, Guard: guard},
		Admin:   &httpserver.AdminHTTP{Svc: orders},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: Repo, Events: events}},

		JWTSecret: cfg.JWTAccessSecret,
		Ready:     Repo.Ping,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", "port", cfg.ServerPort)
		if err := e.Start(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("echo start: %w", err)
	}
	logger.Info("server_stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("echo_shutdown_error", "error", err)
	}
	logger.Info("server_stopped")
	return nil
}
