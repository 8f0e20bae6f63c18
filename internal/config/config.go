// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	RequestTimeout time.Duration
	MetricsEnabled bool
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxy bool
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type string // "mongo" or "memory"
	URI  string
	Name string
}

// AuthConfig holds the token signing and password hashing settings
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	BcryptCost  int
	RegisterTTL time.Duration
	LoginTTL    time.Duration
	AdminEmails []string
}

// RateLimitConfig is applied per client IP
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// EngineConfig sizes the actor engine
type EngineConfig struct {
	PostShards      int
	MutationRetries int
	AskTimeout      time.Duration
}

// EventsConfig enables the optional RabbitMQ publisher
type EventsConfig struct {
	AMQPURL   string
	AMQPQueue string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	RateLimit      *RateLimitConfig
	Engine         *EngineConfig
	Events         *EventsConfig
	AllowedOrigins []string
	Verbose        bool
}

// DefaultConfig provides default settings for everything except the signing key
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Port:           4000,
			Host:           "0.0.0.0",
			RequestTimeout: 30 * time.Second,
			MetricsEnabled: true,
		},
		Database: &DatabaseConfig{
			Type: "mongo",
			URI:  "mongodb://localhost:27017",
			Name: "gator_forum",
		},
		Auth: &AuthConfig{
			JWTIssuer:   "gator-forum",
			BcryptCost:  10,
			RegisterTTL: time.Hour,
			LoginTTL:    7 * 24 * time.Hour,
		},
		RateLimit: &RateLimitConfig{
			Requests: 100,
			Window:   15 * time.Minute,
		},
		Engine: &EngineConfig{
			PostShards:      8,
			MutationRetries: 3,
			AskTimeout:      5 * time.Second,
		},
		Events: &EventsConfig{
			AMQPQueue: "forum.events",
		},
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",          // Current directory
		"../../.env",    // Project root when running from cmd/engine
		"../../../.env", // Even higher directory
		filepath.Join(os.Getenv("GOPATH"), "src/gator-forum/.env"),
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		// Silent when no .env exists
		_ = godotenv.Load()
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. LoadConfig passes os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	var err error

	if host := getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if cfg.Server.Port, err = intVar(getenv, "PORT", cfg.Server.Port); err != nil {
		return nil, err
	}
	if cfg.Server.RequestTimeout, err = durationVar(getenv, "REQUEST_TIMEOUT", cfg.Server.RequestTimeout); err != nil {
		return nil, err
	}
	if v := getenv("METRICS_ENABLED"); v != "" {
		cfg.Server.MetricsEnabled = v == "true"
	}
	if v := getenv("TRUST_PROXY"); v == "true" || v == "1" {
		cfg.Server.TrustProxy = true
	}

	if dbType := getenv("DB_TYPE"); dbType != "" {
		cfg.Database.Type = strings.ToLower(dbType)
	}
	switch cfg.Database.Type {
	case "mongo", "mongodb":
		cfg.Database.Type = "mongo"
		if uri := getenv("MONGODB_URI"); uri != "" {
			cfg.Database.URI = uri
		}
		if name := getenv("MONGODB_DATABASE"); name != "" {
			cfg.Database.Name = name
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (want mongo or memory)", cfg.Database.Type)
	}

	cfg.Auth.JWTSecret = getenv("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if issuer := getenv("JWT_ISSUER"); issuer != "" {
		cfg.Auth.JWTIssuer = issuer
	}
	if cfg.Auth.BcryptCost, err = intVar(getenv, "BCRYPT_COST", cfg.Auth.BcryptCost); err != nil {
		return nil, err
	}
	if admins := getenv("ADMIN_EMAILS"); admins != "" {
		cfg.Auth.AdminEmails = splitList(admins)
	}

	if cfg.RateLimit.Requests, err = intVar(getenv, "RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Window, err = durationVar(getenv, "RATE_LIMIT_WINDOW", cfg.RateLimit.Window); err != nil {
		return nil, err
	}

	if cfg.Engine.PostShards, err = intVar(getenv, "POST_SHARDS", cfg.Engine.PostShards); err != nil {
		return nil, err
	}
	if cfg.Engine.PostShards < 1 {
		return nil, fmt.Errorf("POST_SHARDS must be at least 1")
	}
	if cfg.Engine.MutationRetries, err = intVar(getenv, "MUTATION_RETRIES", cfg.Engine.MutationRetries); err != nil {
		return nil, err
	}
	if cfg.Engine.MutationRetries < 1 {
		return nil, fmt.Errorf("MUTATION_RETRIES must be at least 1")
	}

	cfg.Events.AMQPURL = getenv("AMQP_URL")
	if queue := getenv("AMQP_QUEUE"); queue != "" {
		cfg.Events.AMQPQueue = queue
	}

	// ALLOWED_ORIGINS wins over the single FRONTEND_URL
	if frontend := getenv("FRONTEND_URL"); frontend != "" {
		cfg.AllowedOrigins = []string{frontend}
	}
	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if v := getenv("VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
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
