package config

import (
	"fmt"
	"os"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string
}

func (s ServerConfig) Addr() string {
	port := s.Port
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

// MySQLConfig holds the database connection settings.
type MySQLConfig struct {
	DSN string
}

// B2CConfig holds the Azure AD B2C settings used to verify tokens.
// The JWKS URL and expected issuer are derived from these values,
// never hardcoded in the verifier itself.
type B2CConfig struct {
	Tenant   string // e.g. "storyfairy"
	TenantID string // directory (tenant) GUID, used in the issuer URL
	ClientID string // expected audience
	UserFlow string // e.g. "B2C_1_signupsignin"
}

// JWKSURL returns the key-set discovery endpoint for the configured user flow.
func (b B2CConfig) JWKSURL() string {
	return fmt.Sprintf("https://%s.b2clogin.com/%s.onmicrosoft.com/%s/discovery/v2.0/keys",
		b.Tenant, b.Tenant, b.UserFlow)
}

// Issuer returns the issuer URL the token's 'iss' claim must match.
func (b B2CConfig) Issuer() string {
	return fmt.Sprintf("https://%s.b2clogin.com/%s/v2.0/", b.Tenant, b.TenantID)
}

// StripeConfig holds payment processor settings.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// FrontendBaseURL is where checkout redirects land, e.g. "https://www.storyfairy.app".
	FrontendBaseURL string
}

// GeminiConfig holds the story generation provider settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	Dev   bool
}

// Config is the full application configuration, assembled once at startup
// and passed into constructors. Business logic never reads the environment.
type Config struct {
	Server ServerConfig
	MySQL  MySQLConfig
	B2C    B2CConfig
	Stripe StripeConfig
	Gemini GeminiConfig
	Log    LogConfig
}

// Load reads the configuration from environment variables.
// It returns an error listing the first missing required variable so
// main can fail fast instead of limping along half-configured.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: os.Getenv("PORT"),
		},
		MySQL: MySQLConfig{
			DSN: os.Getenv("DB_DSN"),
		},
		B2C: B2CConfig{
			Tenant:   os.Getenv("B2C_TENANT"),
			TenantID: os.Getenv("B2C_TENANT_ID"),
			ClientID: os.Getenv("B2C_CLIENT_ID"),
			UserFlow: os.Getenv("B2C_USER_FLOW"),
		},
		Stripe: StripeConfig{
			SecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
			FrontendBaseURL: os.Getenv("FRONTEND_BASE_URL"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
			Dev:   os.Getenv("LOG_DEV") == "1",
		},
	}

	if cfg.Stripe.FrontendBaseURL == "" {
		if os.Getenv("ENVT") == "Development" {
			cfg.Stripe.FrontendBaseURL = "http://localhost:3000"
		} else {
			cfg.Stripe.FrontendBaseURL = "https://www.storyfairy.app"
		}
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}

	required := []struct {
		name, value string
	}{
		{"DB_DSN", cfg.MySQL.DSN},
		{"B2C_TENANT", cfg.B2C.Tenant},
		{"B2C_TENANT_ID", cfg.B2C.TenantID},
		{"B2C_CLIENT_ID", cfg.B2C.ClientID},
		{"B2C_USER_FLOW", cfg.B2C.UserFlow},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("missing required environment variable %s", r.name)
		}
	}

	return cfg, nil
}
