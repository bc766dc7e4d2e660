package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server           ServerConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Kafka            KafkaConfig
	BillingService   ServiceConfig
	OrderService     ServiceConfig
	RedirectProvider ProviderConfig
	WidgetProvider   ProviderConfig
	Checkout         CheckoutConfig
	Features         FeatureFlags
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OutcomesTopic string
	OrdersTopic   string
	ConsumerGroup string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// ProviderConfig points at a payment provider's server-side API. Public
// credentials (redirect public key, widget client id) are not config; they
// arrive with the billing settings on each checkout entry.
type ProviderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CheckoutConfig holds checkout-flow tunables. ReconcileTimeout bounds the
// single order-lookup attempt; past it the outcome is degraded, not failed.
type CheckoutConfig struct {
	ReturnURL        string
	CancelURL        string
	ReconcileTimeout time.Duration
	SessionTTL       time.Duration
}

type FeatureFlags struct {
	EnableOutcomeJournal   bool
	EnableAnalyticsEvents  bool
	EnableLateConfirmation bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "checkout"),
			Password:     getEnvString("DB_PASSWORD", "checkout"),
			Name:         getEnvString("DB_NAME", "checkout_outcomes"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_SESSION_TTL", 3600)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnvString("KAFKA_BROKERS", "localhost:9092"), ","),
			OutcomesTopic: getEnvString("KAFKA_OUTCOMES_TOPIC", "checkout.outcomes"),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "orders.events"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "checkout-service"),
		},
		BillingService: ServiceConfig{
			BaseURL: getEnvString("BILLING_SERVICE_URL", "http://localhost:8085"),
			Timeout: time.Duration(getEnvInt("BILLING_SERVICE_TIMEOUT", 10)) * time.Second,
		},
		OrderService: ServiceConfig{
			BaseURL: getEnvString("ORDER_SERVICE_URL", "http://localhost:8086"),
			Timeout: time.Duration(getEnvInt("ORDER_SERVICE_TIMEOUT", 10)) * time.Second,
			APIKey:  getEnvString("ORDER_SERVICE_API_KEY", ""),
		},
		RedirectProvider: ProviderConfig{
			BaseURL: getEnvString("REDIRECT_PROVIDER_URL", "https://pay.example.com"),
			Timeout: time.Duration(getEnvInt("REDIRECT_PROVIDER_TIMEOUT", 15)) * time.Second,
		},
		WidgetProvider: ProviderConfig{
			BaseURL: getEnvString("WIDGET_PROVIDER_URL", "https://widget.example.com"),
			Timeout: time.Duration(getEnvInt("WIDGET_PROVIDER_TIMEOUT", 15)) * time.Second,
		},
		Checkout: CheckoutConfig{
			ReturnURL:        getEnvString("CHECKOUT_RETURN_URL", "http://localhost:3000/checkout/return"),
			CancelURL:        getEnvString("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout"),
			ReconcileTimeout: time.Duration(getEnvInt("RECONCILE_TIMEOUT", 5)) * time.Second,
			SessionTTL:       time.Duration(getEnvInt("CHECKOUT_SESSION_TTL", 3600)) * time.Second,
		},
		Features: FeatureFlags{
			EnableOutcomeJournal:   getEnvBool("ENABLE_OUTCOME_JOURNAL", true),
			EnableAnalyticsEvents:  getEnvBool("ENABLE_ANALYTICS_EVENTS", true),
			EnableLateConfirmation: getEnvBool("ENABLE_LATE_CONFIRMATION", true),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
