package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:                 "8080",
		Env:                  "development",
		MongoURI:             "mongodb://127.0.0.1:27017",
		JWTSecret:            strings.Repeat("a", 32),
		JWTRefreshSecret:     strings.Repeat("b", 32),
		JWTExpiration:        time.Hour,
		JWTRefreshExpiration: 24 * time.Hour,
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := validConfig()
		require.NoError(t, c.Validate())
	})

	t.Run("same secrets rejected", func(t *testing.T) {
		c := validConfig()
		c.JWTRefreshSecret = c.JWTSecret
		assert.Error(t, c.Validate())
	})

	t.Run("missing mongo uri", func(t *testing.T) {
		c := validConfig()
		c.MongoURI = ""
		assert.Error(t, c.Validate())
	})

	t.Run("non-positive token lifetimes", func(t *testing.T) {
		c := validConfig()
		c.JWTRefreshExpiration = 0
		assert.EqualError(t, c.Validate(), "JWT_REFRESH_EXPIRATION must be positive")

		c = validConfig()
		c.JWTRefreshExpiration = -time.Minute
		assert.Error(t, c.Validate())

		c = validConfig()
		c.JWTExpiration = 0
		assert.Error(t, c.Validate())
	})

	t.Run("production rejects default secret", func(t *testing.T) {
		c := validConfig()
		c.Env = "production"
		c.JWTSecret = defaultJWTSecret
		assert.Error(t, c.Validate())
	})

	t.Run("production rejects short secret", func(t *testing.T) {
		c := validConfig()
		c.Env = "prod"
		c.JWTSecret = "short"
		assert.Error(t, c.Validate())
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_EXPIRATION", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "carmarket", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiration)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiration)
	assert.Equal(t, 120, cfg.RateLimit)
}

func TestOrigins(t *testing.T) {
	c := Config{AllowedOrigins: " http://a.com, ,http://b.com "}
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, c.Origins())
}
