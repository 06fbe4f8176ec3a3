package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App             AppConfig
	Log             LogConfig
	Database        DatabaseConfig
	Redis           RedisConfig
	HTTP            HTTPConfig
	Client          ClientConfig
	Courier         CourierConfig
	SellerDirectory SellerDirectoryConfig
	Storefront      StorefrontConfig
	Quote           QuoteConfig
	Sync            SyncConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the quote-result cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	WebhookSecret  string // HMAC secret for origin-sync webhooks
	TrustedProxies []string
}

// ClientConfig holds resilient-client defaults shared by all upstream
// adapters
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// CourierConfig holds courier-aggregation provider settings
type CourierConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	AllowList    []string // courier codes offered at checkout
}

// SellerDirectoryConfig holds seller-directory provider settings
type SellerDirectoryConfig struct {
	BaseURL string
	APIKey  string
}

// StorefrontConfig holds storefront admin API settings
type StorefrontConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// QuoteConfig holds checkout quote business rules
type QuoteConfig struct {
	HandlingFee           int64   // flat fee in major currency units
	FreeShippingThreshold int64   // order subtotal at/above which shipping is free; 0 disables
	MaxRates              int     // cap on rates returned to checkout
	Currency              string  // ISO currency code for checkout rates
	MinorUnitFactor       int64   // major→minor unit multiplier (100 for IDR cents)
	DefaultOriginPostal   string  // fallback origin when a seller cannot be resolved; empty disables
	CacheTTL              time.Duration
	ResolveTTL            time.Duration // TTL for variant/origin resolution cache
	ResolveCacheSize      int           // LRU cap for the resolution cache
	FailOpen              bool          // true: quote errors return empty rates; false: surface 5xx
	AuditCap              int           // most-recent quote audit entries kept
}

// SyncConfig holds order-sync behavior settings
type SyncConfig struct {
	AutoFulfill    bool
	NotifyCustomer bool

	// Background poller that syncs pending orders without operator action
	PollEnabled  bool
	PollInterval time.Duration
	PollBatch    int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHIP_ prefix (e.g., SHIP_COURIER_CLIENT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			WebhookSecret:  v.GetString("http.webhook_secret"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Client: ClientConfig{
			Timeout:    v.GetDuration("client.timeout"),
			MaxRetries: v.GetInt("client.max_retries"),
			BaseDelay:  v.GetDuration("client.base_delay"),
		},
		Courier: CourierConfig{
			BaseURL:      v.GetString("courier.base_url"),
			ClientID:     v.GetString("courier.client_id"),
			ClientSecret: v.GetString("courier.client_secret"),
			AllowList:    v.GetStringSlice("courier.allow_list"),
		},
		SellerDirectory: SellerDirectoryConfig{
			BaseURL: v.GetString("seller_directory.base_url"),
			APIKey:  v.GetString("seller_directory.api_key"),
		},
		Storefront: StorefrontConfig{
			ShopDomain:  v.GetString("storefront.shop_domain"),
			AccessToken: v.GetString("storefront.access_token"),
			APIVersion:  v.GetString("storefront.api_version"),
		},
		Quote: QuoteConfig{
			HandlingFee:           v.GetInt64("quote.handling_fee"),
			FreeShippingThreshold: v.GetInt64("quote.free_shipping_threshold"),
			MaxRates:              v.GetInt("quote.max_rates"),
			Currency:              v.GetString("quote.currency"),
			MinorUnitFactor:       v.GetInt64("quote.minor_unit_factor"),
			DefaultOriginPostal:   v.GetString("quote.default_origin_postal"),
			CacheTTL:              v.GetDuration("quote.cache_ttl"),
			ResolveTTL:            v.GetDuration("quote.resolve_ttl"),
			ResolveCacheSize:      v.GetInt("quote.resolve_cache_size"),
			FailOpen:              v.GetBool("quote.fail_open"),
			AuditCap:              v.GetInt("quote.audit_cap"),
		},
		Sync: SyncConfig{
			AutoFulfill:    v.GetBool("sync.auto_fulfill"),
			NotifyCustomer: v.GetBool("sync.notify_customer"),
			PollEnabled:    v.GetBool("sync.poll_enabled"),
			PollInterval:   v.GetDuration("sync.poll_interval"),
			PollBatch:      v.GetInt("sync.poll_batch"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketship-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "marketship"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 20 * time.Second
	}
	if cfg.Client.MaxRetries == 0 {
		cfg.Client.MaxRetries = 3
	}
	if cfg.Client.BaseDelay == 0 {
		cfg.Client.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Storefront.APIVersion == "" {
		cfg.Storefront.APIVersion = "2024-10"
	}
	if cfg.Quote.MaxRates == 0 {
		cfg.Quote.MaxRates = 8
	}
	if cfg.Quote.Currency == "" {
		cfg.Quote.Currency = "IDR"
	}
	if cfg.Quote.MinorUnitFactor == 0 {
		cfg.Quote.MinorUnitFactor = 100
	}
	if cfg.Quote.CacheTTL == 0 {
		cfg.Quote.CacheTTL = 5 * time.Minute
	}
	if cfg.Quote.ResolveTTL == 0 {
		cfg.Quote.ResolveTTL = 30 * time.Minute
	}
	if cfg.Quote.ResolveCacheSize == 0 {
		cfg.Quote.ResolveCacheSize = 2048
	}
	if cfg.Quote.AuditCap == 0 {
		cfg.Quote.AuditCap = 200
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 5 * time.Minute
	}
	if cfg.Sync.PollBatch == 0 {
		cfg.Sync.PollBatch = 20
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries cannot be negative")
	}
	if c.Quote.MaxRates <= 0 {
		return fmt.Errorf("quote.max_rates must be positive")
	}
	if c.Quote.MinorUnitFactor <= 0 {
		return fmt.Errorf("quote.minor_unit_factor must be positive")
	}

	if c.App.Env == "production" {
		if c.Courier.ClientID == "" || c.Courier.ClientSecret == "" {
			return fmt.Errorf("courier.client_id and courier.client_secret are required in production")
		}
		if c.Storefront.AccessToken == "" {
			return fmt.Errorf("storefront.access_token is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.HTTP.WebhookSecret == "" {
			return fmt.Errorf("http.webhook_secret is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
