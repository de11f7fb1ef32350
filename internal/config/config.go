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
	// EnvDevelopment is the APP_ENV value that enables development behaviour.
	EnvDevelopment = "development"

	// DevJWTSecret is only ever used when APP_ENV=development and JWT_SECRET is unset.
	DevJWTSecret = "dev-only-insecure-jwt-secret-change-me!"

	minJWTSecretBytes = 32
)

// ErrMissingJWTSecret is returned when JWT_SECRET is unset outside development.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required outside development")

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	UploadDir      string
	JWTSecret      string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string

	// UsingDevSecret reports that JWTSecret is the built-in development fallback.
	UsingDevSecret bool
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// Load loads configuration from an optional .env file and environment variables,
// falling back to defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables take precedence.
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	cfg := &Config{
		ServerPort:     port,
		DatabasePath:   getEnv("DATABASE_PATH", "./blog.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		JWTSecret:      strings.TrimSpace(getEnv("JWT_SECRET", "")),
		AppEnv:         getEnv("APP_ENV", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if err := cfg.resolveSecret(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveSecret() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return ErrMissingJWTSecret
		}
		c.JWTSecret = DevJWTSecret
		c.UsingDevSecret = true
		return nil
	}
	if len(c.JWTSecret) < minJWTSecretBytes && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretBytes)
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
