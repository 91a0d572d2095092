// Package config loads application settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-this-in-production"

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"APP_ENV"`
	GinMode              string        `mapstructure:"GIN_MODE"`
	MongoURI             string        `mapstructure:"MONGODB_URI"`
	MongoDatabase        string        `mapstructure:"MONGODB_DATABASE"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret     string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTExpiration        time.Duration `mapstructure:"JWT_EXPIRATION"`
	JWTRefreshExpiration time.Duration `mapstructure:"JWT_REFRESH_EXPIRATION"`
	GoogleClientID       string        `mapstructure:"GOOGLE_CLIENT_ID"`
	RedisURL             string        `mapstructure:"REDIS_URL"`
	RateLimit            int           `mapstructure:"RATE_LIMIT"`
	RateLimitWindow      time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	AllowedOrigins       string        `mapstructure:"ALLOWED_ORIGINS"`
	CloudinaryURL        string        `mapstructure:"CLOUDINARY_URL"`
	PublicDir            string        `mapstructure:"PUBLIC_DIR"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
}

var keys = []string{
	"PORT", "APP_ENV", "GIN_MODE", "MONGODB_URI", "MONGODB_DATABASE",
	"JWT_SECRET", "JWT_REFRESH_SECRET", "JWT_EXPIRATION", "JWT_REFRESH_EXPIRATION",
	"GOOGLE_CLIENT_ID", "REDIS_URL", "RATE_LIMIT", "RATE_LIMIT_WINDOW", "ALLOWED_ORIGINS",
	"CLOUDINARY_URL", "PUBLIC_DIR", "LOG_LEVEL", "LOG_FORMAT",
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using process environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, k := range keys {
		// AutomaticEnv alone does not make Unmarshal see unset keys
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("MONGODB_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGODB_DATABASE", "carmarket")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_REFRESH_SECRET", defaultJWTSecret+"-refresh")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("JWT_REFRESH_EXPIRATION", "168h")
	v.SetDefault("RATE_LIMIT", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWTExpiration <= 0 {
		return errors.New("JWT_EXPIRATION must be positive")
	}
	if c.JWTRefreshExpiration <= 0 {
		return errors.New("JWT_REFRESH_EXPIRATION must be positive")
	}

	if c.IsProduction() {
		if strings.HasPrefix(c.JWTSecret, defaultJWTSecret) || strings.HasPrefix(c.JWTRefreshSecret, defaultJWTSecret) {
			return errors.New("JWT secrets must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 || len(c.JWTRefreshSecret) < 32 {
			return errors.New("JWT secrets must be at least 32 characters in production")
		}
	} else if len(c.JWTSecret) < 32 {
		logrus.Warn("JWT_SECRET is shorter than 32 characters; use a stronger secret in production")
	}
	return nil
}
