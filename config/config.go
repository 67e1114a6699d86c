package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port       string `envconfig:"PORT" default:"8080"`
	AppEnv     string `envconfig:"APP_ENV" default:"local"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	DBURL      string `envconfig:"DB_URL" required:"true"`
	JWTSecret  string `envconfig:"JWT_SECRET" required:"true"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"http://localhost:3000"`

	// PublicURL is the origin used for checkout redirects and check-in links.
	PublicURL string `envconfig:"PUBLIC_URL" required:"true"`
	LogoPath  string `envconfig:"LOGO_PATH"`

	Stripe    StripeConfig
	Resend    ResendConfig
	Google    GoogleConfig
	Storage   StorageConfig
	Replicate ReplicateConfig
}

type StripeConfig struct {
	SecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
}

type ResendConfig struct {
	APIKey    string `envconfig:"RESEND_API_KEY" required:"true"`
	FromEmail string `envconfig:"RESEND_FROM_EMAIL" required:"true"`
}

type GoogleConfig struct {
	ClientID         string `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret     string `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedirectURL      string `envconfig:"GOOGLE_REDIRECT_URL"`
	FrontendRedirect string `envconfig:"GOOGLE_FRONTEND_REDIRECT"`
}

func (g GoogleConfig) Enabled() bool { return g.ClientID != "" }

type StorageConfig struct {
	Endpoint        string `envconfig:"STORAGE_ENDPOINT"`
	Region          string `envconfig:"STORAGE_REGION" default:"eu-west-3"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_ACCESS_KEY"`
	PublicURL       string `envconfig:"STORAGE_PUBLIC_URL"`
	InputBucket     string `envconfig:"STORAGE_INPUT_BUCKET" default:"portraits-input"`
	OutputBucket    string `envconfig:"STORAGE_OUTPUT_BUCKET" default:"portraits-output"`
}

func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

type ReplicateConfig struct {
	APIToken   string `envconfig:"REPLICATE_API_TOKEN"`
	Model      string `envconfig:"REPLICATE_MODEL" default:"google/nano-banana"`
	Prompt     string `envconfig:"PORTRAIT_PROMPT" default:"Transforme ce portrait en affiche de concert classique, tons chauds, lumière de bougie."`
	PriceCents int64  `envconfig:"PORTRAIT_PRICE_CENTS" default:"900"`
}

func (c Config) IsLocal() bool { return c.AppEnv == "local" }

// Load reads an optional .env file, then decodes the environment.
// Missing required keys are reported by name.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects required keys that are present but blank.
func (c Config) validate() error {
	required := []struct {
		key, value string
	}{
		{"DB_URL", c.DBURL},
		{"JWT_SECRET", c.JWTSecret},
		{"PUBLIC_URL", c.PublicURL},
		{"STRIPE_SECRET_KEY", c.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"RESEND_API_KEY", c.Resend.APIKey},
		{"RESEND_FROM_EMAIL", c.Resend.FromEmail},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("load config: required key %s is empty", r.key)
		}
	}
	return nil
}
