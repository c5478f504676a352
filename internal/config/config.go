// Package config resolves the process-wide settings once at startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobs"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/upload"
)

// Component defaults are owned by the components themselves.
const (
	DefaultRegion       = "us-east-1"
	DefaultPollInterval = jobs.DefaultPollInterval
	DefaultRefreshDelay = upload.DefaultRefreshDelay
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultMaxFileSize  = upload.DefaultMaxFileSize
	DefaultEventSubject = "translator.events"
)

// Config is immutable after Load; components receive it by value.
type Config struct {
	APIEndpoint    string
	UserPoolID     string
	UserPoolClient string
	Region         string

	PollInterval time.Duration
	RefreshDelay time.Duration
	HTTPTimeout  time.Duration
	MaxFileSize  int64

	NATSURL      string
	EventSubject string

	SessionFile string
	StaticToken string
}

// CognitoEnabled reports whether the identity-provider identifiers are present.
func (c Config) CognitoEnabled() bool {
	return c.UserPoolID != "" && c.UserPoolClient != ""
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		APIEndpoint:    strings.TrimRight(getenv("API_ENDPOINT", ""), "/"),
		UserPoolID:     getenv("USER_POOL_ID", ""),
		UserPoolClient: getenv("USER_POOL_CLIENT_ID", ""),
		Region:         getenv("REGION", DefaultRegion),
		NATSURL:        getenv("NATS_URL", ""),
		EventSubject:   getenv("EVENT_SUBJECT", DefaultEventSubject),
		SessionFile:    getenv("SESSION_FILE", ""),
		StaticToken:    getenv("TRANSLATOR_TOKEN", ""),
	}

	if cfg.APIEndpoint == "" {
		return Config{}, fmt.Errorf("API_ENDPOINT is required")
	}
	if u, err := url.Parse(cfg.APIEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid API_ENDPOINT %q", cfg.APIEndpoint)
	}
	if (cfg.UserPoolID == "") != (cfg.UserPoolClient == "") {
		return Config{}, fmt.Errorf("USER_POOL_ID and USER_POOL_CLIENT_ID must be set together")
	}

	var err error
	if cfg.PollInterval, err = parseDuration(getenv("POLL_INTERVAL", ""), "POLL_INTERVAL", DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RefreshDelay, err = parseDuration(getenv("REFRESH_DELAY", ""), "REFRESH_DELAY", DefaultRefreshDelay); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseDuration(getenv("HTTP_TIMEOUT", ""), "HTTP_TIMEOUT", DefaultHTTPTimeout); err != nil {
		return Config{}, err
	}

	maxBytes, err := parsePositiveInt(getenv("MAX_UPLOAD_BYTES", strconv.Itoa(DefaultMaxFileSize)), "MAX_UPLOAD_BYTES")
	if err != nil {
		return Config{}, err
	}
	cfg.MaxFileSize = int64(maxBytes)

	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		cfg.SessionFile = filepath.Join(dir, "pdf-translator", "session.json")
	}

	return cfg, nil
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func parseDuration(value, name string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %s)", name, d)
	}
	return d, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
