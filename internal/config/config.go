package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Log        LogConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
	SMTP       SMTPConfig
	Storefront StorefrontConfig
	Order      OrderConfig
	Uploads    UploadsConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CartTTL  time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// Notify receives contact-form notifications and order copies.
	Notify string
}

type StorefrontConfig struct {
	Port            int
	APIBaseURL      string
	APITimeout      time.Duration
	CacheTTL        time.Duration
	SessionCookie   string
	SecureCookie    bool
	CartBackend     string
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollMaxAttempts int
}

type OrderConfig struct {
	MaxRetryAttempts int
	TxTimeout        time.Duration
	TaxRate          float64
	PaymentDueDays   int
	DeliveryDays     int
}

type UploadsConfig struct {
	Dir      string
	MaxBytes int64
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "30s")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "bucheron")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "bucheron")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CART_TTL", "720h")

	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "bucheron.events")

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USER", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "commandes@bucheron.fr")
	viper.SetDefault("SMTP_NOTIFY", "contact@bucheron.fr")

	viper.SetDefault("STOREFRONT_PORT", 3000)
	viper.SetDefault("STOREFRONT_API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("STOREFRONT_API_TIMEOUT", "10s")
	viper.SetDefault("STOREFRONT_CACHE_TTL", "5m")
	viper.SetDefault("STOREFRONT_SESSION_COOKIE", "bucheron_session")
	viper.SetDefault("STOREFRONT_SECURE_COOKIE", false)
	viper.SetDefault("STOREFRONT_CART_BACKEND", "memory")
	viper.SetDefault("STOREFRONT_POLL_INTERVAL", "30s")
	viper.SetDefault("STOREFRONT_POLL_MAX_INTERVAL", "5m")
	viper.SetDefault("STOREFRONT_POLL_MAX_ATTEMPTS", 20)

	viper.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	viper.SetDefault("ORDER_TX_TIMEOUT", "5s")
	viper.SetDefault("ORDER_TAX_RATE", 0.0)
	viper.SetDefault("ORDER_PAYMENT_DUE_DAYS", 7)
	viper.SetDefault("ORDER_DELIVERY_DAYS", 10)

	viper.SetDefault("UPLOADS_DIR", "./uploads")
	viper.SetDefault("UPLOADS_MAX_BYTES", 10<<20)
}

// Load builds the configuration from the environment. Values already read from a
// config file (see commons.LoadConfig) take precedence over defaults.
func Load() (*Config, error) {
	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("SERVER_PORT"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CartTTL:  viper.GetDuration("REDIS_CART_TTL"),
		},
		AMQP: AMQPConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
			Notify:   viper.GetString("SMTP_NOTIFY"),
		},
		Storefront: StorefrontConfig{
			Port:            viper.GetInt("STOREFRONT_PORT"),
			APIBaseURL:      viper.GetString("STOREFRONT_API_BASE_URL"),
			APITimeout:      viper.GetDuration("STOREFRONT_API_TIMEOUT"),
			CacheTTL:        viper.GetDuration("STOREFRONT_CACHE_TTL"),
			SessionCookie:   viper.GetString("STOREFRONT_SESSION_COOKIE"),
			SecureCookie:    viper.GetBool("STOREFRONT_SECURE_COOKIE"),
			CartBackend:     viper.GetString("STOREFRONT_CART_BACKEND"),
			PollInterval:    viper.GetDuration("STOREFRONT_POLL_INTERVAL"),
			PollMaxInterval: viper.GetDuration("STOREFRONT_POLL_MAX_INTERVAL"),
			PollMaxAttempts: viper.GetInt("STOREFRONT_POLL_MAX_ATTEMPTS"),
		},
		Order: OrderConfig{
			MaxRetryAttempts: viper.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
			TxTimeout:        viper.GetDuration("ORDER_TX_TIMEOUT"),
			TaxRate:          viper.GetFloat64("ORDER_TAX_RATE"),
			PaymentDueDays:   viper.GetInt("ORDER_PAYMENT_DUE_DAYS"),
			DeliveryDays:     viper.GetInt("ORDER_DELIVERY_DAYS"),
		},
		Uploads: UploadsConfig{
			Dir:      viper.GetString("UPLOADS_DIR"),
			MaxBytes: viper.GetInt64("UPLOADS_MAX_BYTES"),
		},
	}

	return cfg, nil
}
