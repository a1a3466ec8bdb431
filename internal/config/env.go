package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	AutoMigrate bool
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

type Env struct {
	AppAddr  string
	AppEnv   string
	GinMode  string
	Location *time.Location

	DB       DBConfig
	RedisURL string

	JWTSecret  string
	JWKSURL    string
	SweepToken string

	Razorpay RazorpayConfig
	QRSecret string

	BookingHoldTimeout time.Duration
	CancelCutoff       time.Duration
	QRMaxAge           time.Duration

	CommissionRate decimal.Decimal
	Currency       string
	CORSOrigins    []string
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (e Env) IsProduction() bool {
	return strings.EqualFold(e.AppEnv, "production")
}

// LoadEnv reads configuration from the process environment, after loading a
// .env file when one is present.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		return Env{}, fmt.Errorf("APP_TIMEZONE: %w", err)
	}

	rate, err := decimal.NewFromString(getEnv("COMMISSION_RATE", "0.10"))
	if err != nil {
		return Env{}, fmt.Errorf("COMMISSION_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Env{}, errors.New("COMMISSION_RATE must be between 0 and 1")
	}

	keySecret := getEnv("RAZORPAY_KEY_SECRET", "")
	env := Env{
		AppAddr:  getEnv("APP_ADDR", ":8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		GinMode:  getEnv("GIN_MODE", ""),
		Location: loc,
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "127.0.0.1"),
			Port:        getEnvAsInt("DB_PORT", 3306),
			User:        getEnv("DB_USER", "root"),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", "bus_booking"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		RedisURL:   getEnv("REDIS_URL", ""),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWKSURL:    getEnv("JWT_JWKS_URL", ""),
		SweepToken: getEnv("SWEEP_TOKEN", ""),
		Razorpay: RazorpayConfig{
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     keySecret,
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", keySecret),
			BaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		},
		QRSecret:           getEnv("QR_SIGNING_SECRET", ""),
		BookingHoldTimeout: getEnvAsDuration("BOOKING_HOLD_TIMEOUT", 15*time.Minute),
		CancelCutoff:       getEnvAsDuration("CANCEL_CUTOFF", 6*time.Hour),
		QRMaxAge:           getEnvAsDuration("QR_MAX_AGE", 48*time.Hour),
		CommissionRate:     rate,
		Currency:           strings.ToUpper(getEnv("CURRENCY", "INR")),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	if err := env.validate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e Env) validate() error {
	var missing []string
	if e.QRSecret == "" {
		missing = append(missing, "QR_SIGNING_SECRET")
	}
	if e.Razorpay.WebhookSecret == "" {
		missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
	}
	if e.JWTSecret == "" && e.JWKSURL == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if e.BookingHoldTimeout <= 0 || e.CancelCutoff < 0 || e.QRMaxAge <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
