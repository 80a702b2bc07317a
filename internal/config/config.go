package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/storefront/internal/core/domain"
)

const DefaultPath = "config/config.yaml"

var (
	ErrInvalidStoreDriver  = errors.New("store.driver must be one of memory, file, redis, mysql")
	ErrMissingStorePath    = errors.New("store.path must be set for the file driver")
	ErrMissingRedisAddr    = errors.New("redis.addr must be set for the redis driver")
	ErrMissingMySQLDSN     = errors.New("mysql.dsn must be set for the mysql driver")
	ErrInvalidDisplayRate  = errors.New("ledger.display_factor must be positive")
	ErrInvalidBalance      = errors.New("ledger.starting_balance must not be negative")
	ErrInvalidIncrement    = errors.New("ledger.funds_increment must be positive")
	ErrInvalidCouponPct    = errors.New("coupon percentages must be within 0-100")
	ErrInvalidWorkerConfig = errors.New("orders.workers and orders.queue_size must not be negative")
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
	Development     bool          `yaml:"development"`

	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Rabbit  RabbitConfig  `yaml:"rabbit"`
	Catalog CatalogConfig `yaml:"catalog"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Orders  OrdersConfig  `yaml:"orders"`
	Reviews ReviewsConfig `yaml:"reviews"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, file, redis, mysql
	Path   string `yaml:"path"`
}

type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RabbitConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type CatalogConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LedgerConfig struct {
	StartingBalance string         `yaml:"starting_balance"`
	FundsIncrement  string         `yaml:"funds_increment"`
	DisplayFactor   string         `yaml:"display_factor"`
	Currency        string         `yaml:"currency"`
	Coupons         map[string]int `yaml:"coupons"` // code -> percent off
}

type OrdersConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type ReviewsConfig struct {
	Interval    time.Duration   `yaml:"interval"`
	BannerCount int             `yaml:"banner_count"`
	Items       []domain.Review `yaml:"items"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		GRPCAddr:        ":50051",
		GracefulTimeout: 5 * time.Second,
		Store:           StoreConfig{Driver: "file", Path: "data/ledger.json"},
		Redis:           RedisConfig{Addr: "localhost:6379", IdempotencyTTL: 24 * time.Hour},
		MySQL: MySQLConfig{
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Rabbit:  RabbitConfig{Exchange: "storefront_events"},
		Catalog: CatalogConfig{URL: "https://fakestoreapi.com/products", Timeout: 10 * time.Second},
		Ledger: LedgerConfig{
			StartingBalance: "1000",
			FundsIncrement:  "1000",
			DisplayFactor:   "123",
			Currency:        domain.DefaultCurrency,
			Coupons:         map[string]int{"SMART10": 10},
		},
		Orders:  OrdersConfig{Workers: 2, QueueSize: 1000},
		Reviews: ReviewsConfig{Interval: 5 * time.Second, BannerCount: 4},
	}
}

// Load reads the yaml file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if len(cfg.Reviews.Items) == 0 {
		cfg.Reviews.Items = domain.DefaultReviews()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = getEnv("GRPC_ADDR", c.GRPCAddr)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.Path = getEnv("STORE_PATH", c.Store.Path)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.MySQL.DSN = getEnv("MYSQL_DSN", c.MySQL.DSN)
	c.Rabbit.URL = getEnv("RABBIT_URL", c.Rabbit.URL)
	c.Catalog.URL = getEnv("CATALOG_URL", c.Catalog.URL)
	if v, err := strconv.ParseBool(os.Getenv("DEVELOPMENT")); err == nil {
		c.Development = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return ErrMissingStorePath
		}
	case "redis":
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	case "mysql":
		if c.MySQL.DSN == "" {
			return ErrMissingMySQLDSN
		}
	default:
		return ErrInvalidStoreDriver
	}

	if d, err := c.Ledger.Factor(); err != nil || !d.IsPositive() {
		return ErrInvalidDisplayRate
	}
	if d, err := c.Ledger.Balance(); err != nil || d.IsNegative() {
		return ErrInvalidBalance
	}
	if d, err := c.Ledger.Increment(); err != nil || !d.IsPositive() {
		return ErrInvalidIncrement
	}
	for _, pct := range c.Ledger.Coupons {
		if pct < 0 || pct > 100 {
			return ErrInvalidCouponPct
		}
	}
	if c.Orders.Workers < 0 || c.Orders.QueueSize < 0 {
		return ErrInvalidWorkerConfig
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
