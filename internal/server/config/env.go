package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over file values either way.
//
// Recognized variables:
//
//	ADDRESS                   HTTP bind address
//	DATABASE_DSN              PostgreSQL DSN
//	SECRET_KEY                token signing secret
//	SESSION_TOKEN_TTL_MIN     persistent session token lifetime, minutes
//	SIGNED_TOKEN_TTL_MIN      signed token lifetime, minutes
//	BCRYPT_COST               password hash work factor
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("ADDRESS"); v != "" {
		cfg.EndpointAddrHTTP = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("SESSION_TOKEN_TTL_MIN"); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			cfg.SessionTokenValidityDuration = time.Duration(m) * time.Minute
		}
	}
	if v := os.Getenv("SIGNED_TOKEN_TTL_MIN"); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			cfg.SignedTokenValidityDuration = time.Duration(m) * time.Minute
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if c, err := strconv.Atoi(v); err == nil {
			cfg.BcryptCost = c
		}
	}
}
