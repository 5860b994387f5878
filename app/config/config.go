package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultPort          = "8080"
	defaultSearchTimeout = 60 * time.Second
	defaultMagicAPIURL   = "https://api.magicapi.dev/api/v1/openwebninja/local-business-data"
	defaultNominatimURL  = "https://nominatim.openstreetmap.org"
)

type Config struct {
	Env      string
	Port     string
	BaseURL  string
	Logs     LogConfig
	Stripe   StripeConfig
	Firebase FirebaseConfig
	Quota    QuotaConfig
	DB       PostgresConfig
	LocalBiz LocalBizConfig
	Geocoder GeocoderConfig
	Search   SearchConfig

	CORSOrigins []string
	RedisURL    string
	QueueURL    string
}

type LogConfig struct {
	Style string
	Level string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type QuotaConfig struct {
	Backend string // firestore, postgres or memory
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
	SSLMode  string
}

// DSN builds the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", p.Username, p.Password, p.URL, p.Port, p.Database)
	if p.SSLMode != "" {
		dsn += "?sslmode=" + p.SSLMode
	}
	return dsn
}

type LocalBizConfig struct {
	APIKey  string
	BaseURL string
}

type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
}

type SearchConfig struct {
	Timeout time.Duration
}

func LoadConfig() (*Config, error) {
	searchTimeout := defaultSearchTimeout
	if v := strings.TrimSpace(os.Getenv("SEARCH_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse SEARCH_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return nil, errors.New("SEARCH_TIMEOUT must be positive")
		}
		searchTimeout = d
	}

	cfg := &Config{
		Env:     os.Getenv("ENV"),
		Port:    envOr("PORT", defaultPort),
		BaseURL: strings.TrimRight(os.Getenv("URL"), "/"),
		Logs: LogConfig{
			Style: os.Getenv("LOG_STYLE"),
			Level: os.Getenv("LOG_LEVEL"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceID:       os.Getenv("STRIPE_PRICE_ID"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Quota: QuotaConfig{
			Backend: strings.ToLower(envOr("QUOTA_BACKEND", "firestore")),
		},
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			Database: envOr("POSTGRES_DB", "postgres"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
		},
		LocalBiz: LocalBizConfig{
			APIKey:  os.Getenv("MAGICAPI_KEY"),
			BaseURL: strings.TrimRight(envOr("MAGICAPI_BASE_URL", defaultMagicAPIURL), "/"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   strings.TrimRight(envOr("NOMINATIM_URL", defaultNominatimURL), "/"),
			UserAgent: envOr("NOMINATIM_USER_AGENT", "lcalbizfinder/1.0"),
		},
		Search: SearchConfig{
			Timeout: searchTimeout,
		},
		CORSOrigins: splitList(envOr("CORS_ORIGINS", "*")),
		RedisURL:    os.Getenv("REDIS_URL"),
		QueueURL:    os.Getenv("QUEUE_URL"),
	}

	if cfg.Logs.Style == "" && cfg.IsLocal() {
		cfg.Logs.Style = "text"
	}

	switch cfg.Quota.Backend {
	case "firestore", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown QUOTA_BACKEND %q", cfg.Quota.Backend)
	}

	return cfg, nil
}

// ValidateBilling reports the settings checkout and webhooks cannot run without.
func (c *Config) ValidateBilling() error {
	var missing []string
	if c.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.Stripe.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.Stripe.PriceID == "" {
		missing = append(missing, "STRIPE_PRICE_ID")
	}
	if c.BaseURL == "" {
		missing = append(missing, "URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("billing not configured: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Env, "local") || c.Env == ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
