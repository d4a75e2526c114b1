package config

import (
	"errors"
	"os"
	"strings"
)

const (
	PlaidEnvProduction = "production"
	PlaidEnvSandbox    = "sandbox"

	defaultProductionURL = "https://production.plaid.com"
	defaultSandboxURL    = "https://sandbox.plaid.com"
)

// PlaidEnvironment is one credential set plus the endpoint it belongs to.
// Resolved once per request and threaded through; handlers never re-derive it.
type PlaidEnvironment struct {
	Name     string
	BaseURL  string
	ClientID string
	Secret   string
}

// Configured reports whether this environment has a usable credential pair.
func (e PlaidEnvironment) Configured() bool {
	return e.ClientID != "" && e.Secret != ""
}

// PlaidConfig holds both credential sets. Which one a request uses depends on
// the requesting user's test flag (link tokens) or the token prefix (everything else).
type PlaidConfig struct {
	Production PlaidEnvironment
	Sandbox    PlaidEnvironment
	WebhookURL string
}

// ForTestUser picks sandbox for flagged test users, production for everyone else.
func (p PlaidConfig) ForTestUser(isTestUser bool) PlaidEnvironment {
	if isTestUser {
		return p.Sandbox
	}
	return p.Production
}

// ForToken routes by the environment prefix Plaid embeds in its tokens
// (public-sandbox-..., access-sandbox-...). Unknown prefixes go to production.
func (p PlaidConfig) ForToken(token string) PlaidEnvironment {
	if strings.HasPrefix(token, "public-sandbox-") || strings.HasPrefix(token, "access-sandbox-") {
		return p.Sandbox
	}
	return p.Production
}

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	CORSOrigins     []string
	AdminEmail      string
	FromEmail       string
	SendGridKey     string
	SlackWebhookURL string
	Plaid           PlaidConfig
}

var current Config

// Load reads configuration from the environment, validates the required keys,
// and stores the result for Get. Plaid credentials are deliberately NOT required
// here: each proxy request checks its resolved environment and fails with a
// fixed 500 if the pair is missing.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigins:     splitOrigins(getenv("CORS_ORIGIN", "*")),
		AdminEmail:      strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		FromEmail:       strings.TrimSpace(os.Getenv("FROM_EMAIL")),
		SendGridKey:     strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		SlackWebhookURL: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		Plaid: PlaidConfig{
			Production: PlaidEnvironment{
				Name:     PlaidEnvProduction,
				BaseURL:  getenv("PLAID_BASE_URL", defaultProductionURL),
				ClientID: strings.TrimSpace(os.Getenv("PLAID_CLIENT_ID")),
				Secret:   strings.TrimSpace(os.Getenv("PLAID_SECRET")),
			},
			Sandbox: PlaidEnvironment{
				Name:     PlaidEnvSandbox,
				BaseURL:  getenv("PLAID_SANDBOX_BASE_URL", defaultSandboxURL),
				ClientID: strings.TrimSpace(os.Getenv("PLAID_SANDBOX_CLIENT_ID")),
				Secret:   strings.TrimSpace(os.Getenv("PLAID_SANDBOX_SECRET")),
			},
			WebhookURL: strings.TrimSpace(os.Getenv("PLAID_WEBHOOK_URL")),
		},
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	current = cfg
	return cfg, nil
}

// Get returns the configuration stored by the last successful Load.
func Get() Config {
	return current
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitOrigins(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
