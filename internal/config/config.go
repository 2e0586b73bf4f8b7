package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is read once at process start and handed to constructors.
// Request-handling code never reads the environment.
type Config struct {
	// Resend
	ResendAPIKey      string        `env:"RESEND_API_KEY"`
	ResendAPIKeyParam string        `env:"RESEND_API_KEY_PARAM"`
	ResendBaseURL     string        `env:"RESEND_BASE_URL" envDefault:"https://api.resend.com"`
	ResendTimeout     time.Duration `env:"RESEND_TIMEOUT" envDefault:"10s"`

	// Message routing
	From           string   `env:"CONTACT_FROM"`
	To             []string `env:"CONTACT_TO" envSeparator:","`
	SubjectSuffix  string   `env:"CONTACT_SUBJECT_SUFFIX" envDefault:"via Portfolio"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Optional delivery ledger
	DeliveryTable string `env:"DELIVERY_TABLE"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Local dev server only
	DevAddr      string `env:"DEV_ADDR" envDefault:"127.0.0.1:8888"`
	DevRateRPS   int    `env:"DEV_RATE_RPS" envDefault:"1"`
	DevRateBurst int    `env:"DEV_RATE_BURST" envDefault:"5"`
	LogFile      string `env:"LOG_FILE"`
}

// Load reads an optional .env file and then the process environment.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		// godotenv never overwrites variables that are already set.
		if err := godotenv.Load(f); err == nil {
			break
		}
	}
	return parse(env.Options{})
}

// FromMap parses a Config from an explicit variable set. Used by tests and
// by callers that source configuration from somewhere other than the process.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.ResendAPIKey = strings.TrimSpace(c.ResendAPIKey)
	c.ResendAPIKeyParam = strings.TrimSpace(c.ResendAPIKeyParam)
	c.ResendBaseURL = strings.TrimRight(strings.TrimSpace(c.ResendBaseURL), "/")
	c.From = strings.TrimSpace(c.From)
	c.To = compact(c.To)
	c.AllowedOrigins = compact(c.AllowedOrigins)
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimRight(o, "/")
	}
	c.DeliveryTable = strings.TrimSpace(c.DeliveryTable)
}

// Validate reports the first missing or contradictory setting.
func (c Config) Validate() error {
	switch {
	case c.ResendAPIKey == "" && c.ResendAPIKeyParam == "":
		return errors.New("config: one of RESEND_API_KEY or RESEND_API_KEY_PARAM is required")
	case c.ResendAPIKey != "" && c.ResendAPIKeyParam != "":
		return errors.New("config: RESEND_API_KEY and RESEND_API_KEY_PARAM are mutually exclusive")
	case c.From == "":
		return errors.New("config: CONTACT_FROM is required")
	case len(c.To) == 0:
		return errors.New("config: CONTACT_TO is required")
	case len(c.AllowedOrigins) == 0:
		return errors.New("config: ALLOWED_ORIGINS must list at least one origin")
	case c.ResendTimeout <= 0:
		return errors.New("config: RESEND_TIMEOUT must be positive")
	}
	return nil
}

// LedgerEnabled reports whether delivery records should be written.
func (c Config) LedgerEnabled() bool {
	return c.DeliveryTable != ""
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
