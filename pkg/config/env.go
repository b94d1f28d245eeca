package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Env holds the process settings read from the environment.
type Env struct {
	Port            string
	WebhookSecret   string
	AppID           int64
	PrivateKey      []byte
	Token           string
	APIURL          string
	LogLevel        string
	LogFormat       string // "json" or "text"
	ConfigFile      string
	ShutdownTimeout time.Duration
}

// LoadEnv reads the environment, after loading .env if one exists.
func LoadEnv() (*Env, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	env := &Env{
		Port:            getEnv("PORT", "8080"),
		WebhookSecret:   os.Getenv("GITHUB_WEBHOOK_SECRET"),
		Token:           os.Getenv("GITHUB_TOKEN"),
		APIURL:          getEnv("GITHUB_API_URL", "https://api.github.com"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		ConfigFile:      os.Getenv("FMTCHECK_CONFIG"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_APP_ID %q: %w", v, err)
		}
		env.AppID = id
	}

	key, err := loadPrivateKey()
	if err != nil {
		return nil, err
	}
	env.PrivateKey = key

	return env, nil
}

// loadPrivateKey reads GITHUB_PRIVATE_KEY, accepting literal "\n" escapes,
// or the file named by GITHUB_PRIVATE_KEY_PATH.
func loadPrivateKey() ([]byte, error) {
	if v := os.Getenv("GITHUB_PRIVATE_KEY"); v != "" {
		return []byte(strings.ReplaceAll(v, `\n`, "\n")), nil
	}
	if path := os.Getenv("GITHUB_PRIVATE_KEY_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read GITHUB_PRIVATE_KEY_PATH: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

// UsesApp reports whether GitHub App credentials are configured.
func (e *Env) UsesApp() bool {
	return e.AppID != 0 && len(e.PrivateKey) > 0
}

// ValidateService checks the settings the webhook service needs.
func (e *Env) ValidateService() error {
	if e.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}
	if port, err := strconv.Atoi(e.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT: %q", e.Port)
	}
	if !e.UsesApp() && e.Token == "" {
		return fmt.Errorf("set GITHUB_APP_ID and GITHUB_PRIVATE_KEY, or GITHUB_TOKEN")
	}
	if e.AppID != 0 && len(e.PrivateKey) == 0 {
		return fmt.Errorf("GITHUB_APP_ID is set but no private key was provided")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
