// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Signing Algorithms

// Supported values for JWT_ALGORITHM. The token core requires exactly one
// symmetric and one asymmetric scheme, selected at startup.
const (
	// AlgHS256 signs tokens with a shared HMAC-SHA256 secret.
	AlgHS256 = "HS256"

	// AlgRS256 signs tokens with an RSA private key and verifies with the
	// corresponding public key (independent sign/verify key material).
	AlgRS256 = "RS256"
)

// # Configuration Schema

// Config holds all runtime configuration for the Aegis API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) backing the token revocation list
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing scheme: HS256 (shared secret) or RS256 (key pair).
	JWTAlgorithm string `env:"JWT_ALGORITHM" envDefault:"RS256"`

	// JWTSecret is the HMAC secret. Required when JWT_ALGORITHM=HS256.
	JWTSecret string `env:"JWT_SECRET"`

	// PEM key paths. Required when JWT_ALGORITHM=RS256.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	// Token claim configuration
	JWTIssuer   string `env:"JWT_ISSUER"   envDefault:"aegis"`
	JWTAudience string `env:"JWT_AUDIENCE"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// RevocationCleanupInterval is how often expired revocation entries are reaped.
	RevocationCleanupInterval time.Duration `env:"REVOCATION_CLEANUP_INTERVAL" envDefault:"10m"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// Cross-field validation for the selected signing scheme.
	switch cfg.JWTAlgorithm {
	case AlgHS256:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("config: JWT_SECRET is required when JWT_ALGORITHM=HS256")
		}
	case AlgRS256:
		if cfg.JWTPrivKeyPath == "" || cfg.JWTPubKeyPath == "" {
			return nil, fmt.Errorf("config: JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH are required when JWT_ALGORITHM=RS256")
		}
	default:
		return nil, fmt.Errorf("config: unsupported JWT_ALGORITHM %q (must be HS256 or RS256)", cfg.JWTAlgorithm)
	}

	return cfg, nil
}

// AllowedOrigins returns the extra CORS origins as a parsed list.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
