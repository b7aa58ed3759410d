package config

import (
	"time"

	"github.com/Skotchmaster/shopsana/pkg/config"
	"github.com/Skotchmaster/shopsana/services/order/internal/pricing"
	"github.com/Skotchmaster/shopsana/services/order/internal/search"
)

type ServiceConfig struct {
	config.Config

	Pricing        pricing.Config
	ESOrderIndex   string
	IdempotencyTTL time.Duration
}

// FromEnv reads the service settings without enforcing required keys.
func FromEnv() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	def := pricing.DefaultConfig()
	return ServiceConfig{
		Config: cfg,
		Pricing: pricing.Config{
			ShippingThreshold: config.EnvDecimalDefault("SHIPPING_THRESHOLD", def.ShippingThreshold),
			ShippingFee:       config.EnvDecimalDefault("SHIPPING_FEE", def.ShippingFee),
			TaxRate:           config.EnvDecimalDefault("TAX_RATE", def.TaxRate),
		},
		ESOrderIndex:   config.EnvDefault("ES_ORDER_INDEX", search.DefaultIndex),
		IdempotencyTTL: time.Duration(config.EnvIntDefault("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
	}
}

func Load() ServiceConfig {
	cfg := FromEnv()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	return cfg
}
