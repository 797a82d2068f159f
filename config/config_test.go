package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CI", "")
	t.Setenv("SECRETS_DIR", t.TempDir())
}

func TestLoadConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("DB_NAME", "foodgram_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("PUBLIC_BASE_URL", "https://foodgram.example/")
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, Test, cfg.Env)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "5433", cfg.DBPort)
	assert.Equal(t, "postgres", cfg.DBUser)
	assert.Equal(t, "foodgram_test", cfg.DBName)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "https://foodgram.example", cfg.PublicBaseURL)
	assert.Equal(t, "https://foodgram.example/media", cfg.MediaBaseURL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Contains(t, cfg.DSN(), "dbname=foodgram_test")
}

func TestLoadConfigWithDefaults(t *testing.T) {
	setTestEnv(t)
	for _, name := range []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_SSL_MODE", "PAGE_SIZE", "TOKEN_TTL", "SERVER_PORT", "PUBLIC_BASE_URL", "MEDIA_BASE_URL"} {
		t.Setenv(name, "")
	}
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "foodgram", cfg.DBName)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 6, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadConfigPrefersSecrets(t *testing.T) {
	setTestEnv(t)
	dir := os.Getenv("SECRETS_DIR")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("from-secret\n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-secret", cfg.JWTSecret)
}

func TestLoadConfigInvalidNumbers(t *testing.T) {
	setTestEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PAGE_SIZE", "many")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAGE_SIZE")
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{Env: Production, PageSize: 6, TokenTTL: time.Hour, JWTSecret: "short"}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER: is required")
	assert.Contains(t, err.Error(), "DB_PASSWORD: is required")
	assert.Contains(t, err.Error(), "PUBLIC_BASE_URL: is required")
	assert.Contains(t, err.Error(), "at least 32 characters")

	cfg = &Config{Env: Test, PageSize: 6, TokenTTL: time.Hour, JWTSecret: "x"}
	assert.NoError(t, ValidateConfig(cfg))
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("CI", "true")
	assert.Equal(t, CI, GetEnvironment())

	t.Setenv("CI", "")
	t.Setenv("ENV", "prod")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())

	t.Setenv("ENV", "")
	assert.Equal(t, Development, GetEnvironment())
}
