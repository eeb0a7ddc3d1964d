package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                 = "5000"
	DefaultCodingSeconds        = 30
	DefaultMaxMessagesPerSecond = 60

	minCodingSeconds = 5
	maxCodingSeconds = 300
)

var (
	ErrMissingAllowedOrigins = errors.New("missing-allowed-origins")
	ErrInvalidValue          = errors.New("invalid-config-value")
)

type Config struct {
	Port                 string
	AllowedOrigins       []string
	PostgresURL          string
	Debug                bool
	LogPretty            bool
	CodingSeconds        int
	MaxMessagesPerSecond int
}

// Load reads an optional .env file, then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("loading %s: %w", f, err)
			}
		}
	}

	cfg := Config{
		Port:                 DefaultPort,
		CodingSeconds:        DefaultCodingSeconds,
		MaxMessagesPerSecond: DefaultMaxMessagesPerSecond,
	}

	origins, exists := os.LookupEnv("ALLOWED_ORIGINS")
	if !exists || strings.TrimSpace(origins) == "" {
		return Config{}, ErrMissingAllowedOrigins
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if port, exists := os.LookupEnv("PORT"); exists && port != "" {
		cfg.Port = port
	}
	cfg.PostgresURL = os.Getenv("POSTGRES_URL")

	var err error
	if cfg.Debug, err = boolEnv("DEBUG"); err != nil {
		return Config{}, err
	}
	if cfg.LogPretty, err = boolEnv("LOG_PRETTY"); err != nil {
		return Config{}, err
	}
	if cfg.CodingSeconds, err = intEnv("CODING_SECONDS", DefaultCodingSeconds); err != nil {
		return Config{}, err
	}
	if cfg.CodingSeconds < minCodingSeconds || cfg.CodingSeconds > maxCodingSeconds {
		return Config{}, fmt.Errorf("%w: CODING_SECONDS must be between %d and %d", ErrInvalidValue, minCodingSeconds, maxCodingSeconds)
	}
	if cfg.MaxMessagesPerSecond, err = intEnv("MAX_MESSAGES_PER_SECOND", DefaultMaxMessagesPerSecond); err != nil {
		return Config{}, err
	}
	if cfg.MaxMessagesPerSecond < 1 {
		return Config{}, fmt.Errorf("%w: MAX_MESSAGES_PER_SECOND must be positive", ErrInvalidValue)
	}

	return cfg, nil
}

func boolEnv(key string) (bool, error) {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}
	return b, nil
}

func intEnv(key string, fallback int) (int, error) {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}
	return n, nil
}
