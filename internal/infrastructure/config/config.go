package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// BackendConfig points at the storefront backend that brokers checkout
// sessions and payment status checks.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// GatewayConfig carries the merchant constants for the payment sheet and
// the gateway submitter selection.
type GatewayConfig struct {
	MerchantID        string   `mapstructure:"merchant_id"`
	SupportedNetworks []string `mapstructure:"supported_networks"`
	CountryCode       string   `mapstructure:"country_code"`
	CurrencyCode      string   `mapstructure:"currency_code"`
	SummaryLabel      string   `mapstructure:"summary_label"`
	ShopperResultURL  string   `mapstructure:"shopper_result_url"`
	Submitter         string   `mapstructure:"submitter"`
	Mode              string   `mapstructure:"mode"`     // "mock" or "live"
	BaseURL           string   `mapstructure:"base_url"` // gateway host, required in live mode
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type CheckoutConfig struct {
	VerifyMaxRetries int           `mapstructure:"verify_max_retries"`
	VerifyRetryDelay time.Duration `mapstructure:"verify_retry_delay"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
}

type WorkerConfig struct {
	BatchSize      int64         `mapstructure:"batch_size"`
	BlockDuration  time.Duration `mapstructure:"block_duration"`
	ConsumerGroup  string        `mapstructure:"consumer_group"`
	ClaimMinIdle   time.Duration `mapstructure:"claim_min_idle"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("WISHY")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/wishy-payments")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
	}
	if c.Gateway.MerchantID == "" {
		errs = append(errs, fmt.Errorf("gateway.merchant_id is required"))
	}
	if len(c.Gateway.SupportedNetworks) == 0 {
		errs = append(errs, fmt.Errorf("gateway.supported_networks must not be empty"))
	}
	if c.Gateway.Mode != "mock" && c.Gateway.Mode != "live" {
		errs = append(errs, fmt.Errorf("gateway.mode must be \"mock\" or \"live\", got %q", c.Gateway.Mode))
	}
	if c.Gateway.Mode == "live" {
		if c.Gateway.BaseURL == "" {
			errs = append(errs, fmt.Errorf("gateway.base_url is required in live mode"))
		} else if u, err := url.Parse(c.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("gateway.base_url must be an absolute URL, got %q", c.Gateway.BaseURL))
		}
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Checkout.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("checkout.lock_ttl must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Backend defaults
	v.SetDefault("backend.accept_language", "ar")
	v.SetDefault("backend.timeout", "30s")

	// Gateway defaults
	v.SetDefault("gateway.merchant_id", "merchant.wishy.newlive.sa.com")
	v.SetDefault("gateway.supported_networks", []string{"visa", "mastercard", "mada"})
	v.SetDefault("gateway.country_code", "SA")
	v.SetDefault("gateway.currency_code", "SAR")
	v.SetDefault("gateway.summary_label", "Wishy")
	v.SetDefault("gateway.shopper_result_url", "sa.com.wishy.payments://payment")
	v.SetDefault("gateway.submitter", "hyperpay")
	v.SetDefault("gateway.mode", "mock")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "payments")
	v.SetDefault("database.database", "payments")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Checkout defaults
	v.SetDefault("checkout.verify_max_retries", 3)
	v.SetDefault("checkout.verify_retry_delay", "2s")
	v.SetDefault("checkout.lock_ttl", "30s")

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.consumer_group", "checkout-verifiers")
	v.SetDefault("worker.claim_min_idle", "60s")
	v.SetDefault("worker.idempotency_ttl", "24h")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "payments-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
