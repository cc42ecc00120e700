package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Auth.
	JWTSecret  string `mapstructure:"JWT_SECRET"`
	AdminToken string `mapstructure:"ADMIN_TOKEN"`

	// Stripe.
	StripeKey                  string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret        string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeTimeoutSeconds       int    `mapstructure:"STRIPE_TIMEOUT_SECONDS"`
	StripeConnectCountry       string `mapstructure:"STRIPE_CONNECT_COUNTRY"`
	StripeOnboardingRefreshURL string `mapstructure:"STRIPE_ONBOARDING_REFRESH_URL"`
	StripeOnboardingReturnURL  string `mapstructure:"STRIPE_ONBOARDING_RETURN_URL"`

	// Payouts and pricing.
	PayoutMode             string  `mapstructure:"PAYOUT_MODE"`
	DefaultCurrency        string  `mapstructure:"DEFAULT_CURRENCY"`
	AllowedCurrencies      string  `mapstructure:"ALLOWED_CURRENCIES"`
	DefaultCommissionType  string  `mapstructure:"DEFAULT_COMMISSION_TYPE"`
	DefaultCommissionValue float64 `mapstructure:"DEFAULT_COMMISSION_VALUE"`

	// Background jobs.
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	AutoPayoutEnabled bool          `mapstructure:"AUTO_PAYOUT_ENABLED"`
	SlotHoldTTL       time.Duration `mapstructure:"SLOT_HOLD_TTL"`

	// Outbound events.
	EventSink    string `mapstructure:"EVENT_SINK"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Firebase and Cloudinary.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	CloudinaryCloudName     string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey        string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret     string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder        string `mapstructure:"CLOUDINARY_FOLDER"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "bookmyevent")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("ADMIN_TOKEN", "")
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("STRIPE_TIMEOUT_SECONDS", 15)
	viper.SetDefault("STRIPE_CONNECT_COUNTRY", "US")
	viper.SetDefault("STRIPE_ONBOARDING_REFRESH_URL", "http://localhost:3000/provider/stripe/refresh")
	viper.SetDefault("STRIPE_ONBOARDING_RETURN_URL", "http://localhost:3000/provider/stripe/return")
	viper.SetDefault("PAYOUT_MODE", "SIMULATION")
	viper.SetDefault("DEFAULT_CURRENCY", "usd")
	viper.SetDefault("ALLOWED_CURRENCIES", "inr,usd,aed")
	viper.SetDefault("DEFAULT_COMMISSION_TYPE", "percentage")
	viper.SetDefault("DEFAULT_COMMISSION_VALUE", 15)
	viper.SetDefault("SWEEP_INTERVAL", "10m")
	viper.SetDefault("AUTO_PAYOUT_ENABLED", false)
	viper.SetDefault("SLOT_HOLD_TTL", "15m")
	viper.SetDefault("EVENT_SINK", "queue")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "booking-events")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("CLOUDINARY_FOLDER", "bookmyevent")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// AllowedCurrencyList splits ALLOWED_CURRENCIES.
func (c Config) AllowedCurrencyList() []string {
	return splitList(c.AllowedCurrencies)
}

// KafkaBrokerList splits KAFKA_BROKERS.
func (c Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

// SimulatedPayouts reports whether transfers are simulated.
func (c Config) SimulatedPayouts() bool {
	return !strings.EqualFold(c.PayoutMode, "STRIPE")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
