package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment

	// Server configuration
	ServerPort    string
	ServerHost    string
	PublicBaseURL string
	CORSOrigins   []string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string
	TokenTTL  time.Duration

	// Image storage. S3 is used when S3Bucket is set, local disk otherwise.
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	MediaDir     string
	MediaBaseURL string

	PageSize          int
	LogLevel          string
	RecipeCreateLimit int
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	if env.usesDotEnv() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{Env: env}
	if err := load(cfg, env); err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(cfg *Config, env Environment) error {
	// CI reads everything from the environment; other environments prefer
	// Docker secrets for sensitive values.
	secret := func(envName, secretName string) string {
		if env == CI {
			return os.Getenv(envName)
		}
		return firstNonEmpty(readSecret(secretName), os.Getenv(envName))
	}

	cfg.ServerPort = getEnv("SERVER_PORT", "8080")
	cfg.ServerHost = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000"))

	cfg.DBHost = getEnv("DB_HOST", "localhost")
	cfg.DBPort = getEnv("DB_PORT", "5432")
	cfg.DBUser = secret("DB_USER", "db_user")
	cfg.DBPassword = secret("DB_PASSWORD", "db_password")
	cfg.DBName = getEnv("DB_NAME", "foodgram")
	cfg.DBSSLMode = getEnv("DB_SSL_MODE", "disable")

	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPort = getEnv("REDIS_PORT", "6379")
	cfg.RedisPassword = secret("REDIS_PASSWORD", "redis_password")
	cfg.RedisURL = secret("REDIS_URL", "redis_url")
	cfg.RedisDB = 0

	cfg.JWTSecret = secret("JWT_SECRET", "jwt_secret")

	cfg.S3Bucket = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Region = getEnv("AWS_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.MediaDir = getEnv("MEDIA_DIR", "media")
	cfg.MediaBaseURL = strings.TrimRight(getEnv("MEDIA_BASE_URL", cfg.PublicBaseURL+"/media"), "/")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h")); err != nil {
		return ValidationError{Field: "TOKEN_TTL", Message: err.Error()}
	}
	if cfg.PageSize, err = strconv.Atoi(getEnv("PAGE_SIZE", "6")); err != nil {
		return ValidationError{Field: "PAGE_SIZE", Message: err.Error()}
	}
	if cfg.RecipeCreateLimit, err = strconv.Atoi(getEnv("RECIPE_CREATE_LIMIT", "30")); err != nil {
		return ValidationError{Field: "RECIPE_CREATE_LIMIT", Message: err.Error()}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// DSN returns a lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getEnv(name, fallback string) string {
	return firstNonEmpty(os.Getenv(name), fallback)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
