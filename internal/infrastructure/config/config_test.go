package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:        "https://api.wishy.example.com",
			AcceptLanguage: "ar",
			Timeout:        30 * time.Second,
		},
		Gateway: GatewayConfig{
			MerchantID:        "merchant.wishy.newlive.sa.com",
			SupportedNetworks: []string{"visa", "mastercard", "mada"},
			CountryCode:       "SA",
			CurrencyCode:      "SAR",
			SummaryLabel:      "Wishy",
			ShopperResultURL:  "sa.com.wishy.payments://payment",
			Submitter:         "hyperpay",
			Mode:              "mock",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Checkout: CheckoutConfig{
			LockTTL: 30 * time.Second,
		},
		Worker: WorkerConfig{
			BatchSize: 10,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_MissingBackendURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
}

func TestConfig_Validate_RelativeBackendURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = "/api/v1"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
}

func TestConfig_Validate_MissingMerchantID(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.MerchantID = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.merchant_id")
}

func TestConfig_Validate_EmptyNetworks(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.SupportedNetworks = nil

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.supported_networks")
}

func TestConfig_Validate_BadGatewayMode(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Mode = "sandbox"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.mode")
}

func TestConfig_Validate_LiveModeRequiresGatewayURL(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Mode = "live"
	cfg.Gateway.BaseURL = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.base_url")

	cfg.Gateway.BaseURL = "eu-prod.oppwa.example.com"
	err = cfg.Validate()
	assert.Error(t, err, "a scheme-less gateway URL must be rejected")
	assert.Contains(t, err.Error(), "gateway.base_url")

	cfg.Gateway.BaseURL = "https://eu-prod.oppwa.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MockModeNeedsNoGatewayURL(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Mode = "mock"
	cfg.Gateway.BaseURL = ""

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Backend.BaseURL = ""
	cfg.Gateway.MerchantID = ""
	cfg.Redis.Port = 0
	cfg.Worker.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "server.port")
	assert.Contains(t, errStr, "backend.base_url")
	assert.Contains(t, errStr, "gateway.merchant_id")
	assert.Contains(t, errStr, "redis.port")
	assert.Contains(t, errStr, "worker.batch_size")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db.example.com", Port: 5432,
		User: "app", Password: "secret", Database: "payments", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.example.com port=5432 user=app password=secret dbname=payments sslmode=require",
		cfg.DatabaseDSN(),
	)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.example.com", Port: 6379}
	assert.Equal(t, "redis.example.com:6379", cfg.RedisAddr())
}
