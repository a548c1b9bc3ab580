package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Shop      ShopConfig      `mapstructure:"shop"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

// DatabaseConfig 订单存储配置；driver=memory 时不连数据库
type DatabaseConfig struct {
	Driver       string   `mapstructure:"driver" validate:"oneof=memory sqlite postgres"`
	DSN          string   `mapstructure:"dsn" validate:"required_unless=Driver memory"`
	ShardDSNs    []string `mapstructure:"shard_dsns"`
	MaxOpenConns int      `mapstructure:"max_open_conns"`
	MaxIdleConns int      `mapstructure:"max_idle_conns"`
	LogSQL       bool     `mapstructure:"log_sql"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ShopConfig 计价与下单规则
type ShopConfig struct {
	TaxRate               float64       `mapstructure:"tax_rate" validate:"min=0,max=1"`
	FreeShippingThreshold float64       `mapstructure:"free_shipping_threshold" validate:"min=0"`
	FlatShipping          float64       `mapstructure:"flat_shipping" validate:"min=0"`
	DeliveryLeadDays      int           `mapstructure:"delivery_lead_days" validate:"min=0"`
	OrderPrefix           string        `mapstructure:"order_prefix" validate:"required,alphanum"`
	SeedOrders            bool          `mapstructure:"seed_orders"`
	PaymentLatency        time.Duration `mapstructure:"payment_latency"`
	PaymentWorkers        int           `mapstructure:"payment_workers" validate:"min=1"`
	PaymentQueueSize      int           `mapstructure:"payment_queue_size" validate:"min=1"`
	RecentOrdersLimit     int           `mapstructure:"recent_orders_limit" validate:"min=1"`
}

type SessionConfig struct {
	Secret        string        `mapstructure:"secret" validate:"required,min=16"`
	TTL           time.Duration `mapstructure:"ttl" validate:"required"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps" validate:"min=0"`
	Burst   int     `mapstructure:"burst" validate:"min=0"`
}

type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"min=0,max=1"`
}

// Load 加载配置：config/config.yaml（可选）+ APP_ 前缀环境变量
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 从指定文件加载配置；path 为空时按默认路径查找
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.shard_dsns", []string{})
	v.SetDefault("database.log_sql", false)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("shop.tax_rate", 0.07)
	v.SetDefault("shop.free_shipping_threshold", 75.0)
	v.SetDefault("shop.flat_shipping", 6.5)
	v.SetDefault("shop.delivery_lead_days", 5)
	v.SetDefault("shop.order_prefix", "BCC")
	v.SetDefault("shop.seed_orders", true)
	v.SetDefault("shop.payment_latency", 900*time.Millisecond)
	v.SetDefault("shop.payment_workers", 4)
	v.SetDefault("shop.payment_queue_size", 256)
	v.SetDefault("shop.recent_orders_limit", 10)

	v.SetDefault("session.secret", "change-me-bcc-kids-session")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "bcc-marketplace")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}
