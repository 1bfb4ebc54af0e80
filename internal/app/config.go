package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (NAZAKAT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (NAZAKAT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	FrontendURL  string `default:"http://localhost:5173" usage:"Storefront origin for gateway redirects" flag:"frontend-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	PayFast      PayFastConfig
	SMTP         SMTPConfig
	Notify       NotifyConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PayFastConfig holds the payment gateway merchant credentials and callback
// URLs.
type PayFastConfig struct {
	MerchantID  string `usage:"PayFast merchant ID" flag:"payfast-merchant-id"`
	MerchantKey string `usage:"PayFast merchant key" flag:"payfast-merchant-key"`
	Passphrase  string `usage:"PayFast signature passphrase (empty disables it)" flag:"payfast-passphrase"`
	ReturnURL   string `usage:"URL PayFast sends the customer to after payment" flag:"payfast-return-url"`
	CancelURL   string `usage:"URL PayFast sends the customer to on cancel" flag:"payfast-cancel-url"`
	NotifyURL   string `usage:"URL PayFast posts server callbacks to" flag:"payfast-notify-url"`
	Sandbox     bool   `default:"true" usage:"Use the PayFast sandbox" flag:"payfast-sandbox"`
}

// SMTPConfig holds the outbound mail relay settings. An empty Host disables
// email notifications.
type SMTPConfig struct {
	Host     string `usage:"SMTP relay host (empty disables email)" flag:"smtp-host"`
	Port     int    `default:"587" usage:"SMTP relay port" flag:"smtp-port"`
	Username string `usage:"SMTP username" flag:"smtp-username"`
	Password string `usage:"SMTP password" flag:"smtp-password"`
	From     string `usage:"From address for notification email" flag:"smtp-from"`
}

// NotifyConfig controls the notification dispatcher.
type NotifyConfig struct {
	QueueSize int `default:"64" usage:"Notification queue capacity" flag:"notify-queue-size"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NAZAKAT",
		Files:     []string{"config.yaml", "/etc/nazakat/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set NAZAKAT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.PayFast.MerchantID == "" || cfg.PayFast.MerchantKey == "" {
		return nil, errors.New("PayFast merchant credentials are required")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's NAZAKAT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
