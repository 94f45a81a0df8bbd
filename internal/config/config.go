// Package config loads service configuration from the environment, with an
// optional .env file for local development.
//
// Environment variables:
//   - SERVER_ADDR (default: :8080)
//   - GIN_MODE (default: release)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//   - DATABASE_URL or PGHOST/PGPORT/PGUSER/PGPASSWORD/PGDATABASE/PGSSLMODE
//   - SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
//   - JWT_SECRET (required, >= 32 bytes), JWT_ISSUER
//   - ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL
//   - OTP_LENGTH, OTP_TTL, OTP_MAX_ATTEMPTS
//   - RATE_REQUEST_IP_PER_MIN, RATE_REQUEST_EMAIL_PER_MIN, RATE_LOGOUT_IP_PER_MIN
//   - LOCKOUT_ACCOUNT_MAX_FAILURES, LOCKOUT_ACCOUNT_WINDOW
//   - LOCKOUT_IP_MAX_FAILURES, LOCKOUT_IP_WINDOW
//   - BLACKLIST_SWEEP_INTERVAL
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	otpAuth "github.com/MrEthical07/otpAuth"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	SMTP     SMTPConfig
	Auth     otpAuth.Config
}

type ServerConfig struct {
	Addr    string
	GinMode string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load reads the environment into a Config. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be set and at least 32 bytes")
	}

	auth := otpAuth.DefaultConfig()
	auth.JWT.Secret = []byte(secret)
	auth.JWT.Issuer = getenv("JWT_ISSUER", auth.JWT.Issuer)
	auth.JWT.AccessTTL = getenvDuration("ACCESS_TOKEN_TTL", auth.JWT.AccessTTL)
	auth.JWT.RefreshTTL = getenvDuration("REFRESH_TOKEN_TTL", auth.JWT.RefreshTTL)

	auth.OTP.Length = getenvInt("OTP_LENGTH", auth.OTP.Length)
	auth.OTP.TTL = getenvDuration("OTP_TTL", auth.OTP.TTL)
	auth.OTP.MaxAttempts = getenvInt("OTP_MAX_ATTEMPTS", auth.OTP.MaxAttempts)

	if v := getenvFloat("RATE_REQUEST_IP_PER_MIN", auth.RateLimit.RequestIPCapacity); v > 0 {
		auth.RateLimit.RequestIPCapacity = v
		auth.RateLimit.RequestIPRefillPerMin = v
	}
	if v := getenvFloat("RATE_REQUEST_EMAIL_PER_MIN", auth.RateLimit.RequestEmailCapacity); v > 0 {
		auth.RateLimit.RequestEmailCapacity = v
		auth.RateLimit.RequestEmailRefillMin = v
	}
	if v := getenvFloat("RATE_LOGOUT_IP_PER_MIN", auth.RateLimit.LogoutIPCapacity); v > 0 {
		auth.RateLimit.LogoutIPCapacity = v
		auth.RateLimit.LogoutIPRefillPerMin = v
	}

	auth.Lockout.AccountMaxFailures = getenvInt("LOCKOUT_ACCOUNT_MAX_FAILURES", auth.Lockout.AccountMaxFailures)
	auth.Lockout.AccountWindow = getenvDuration("LOCKOUT_ACCOUNT_WINDOW", auth.Lockout.AccountWindow)
	auth.Lockout.IPMaxFailures = getenvInt("LOCKOUT_IP_MAX_FAILURES", auth.Lockout.IPMaxFailures)
	auth.Lockout.IPWindow = getenvDuration("LOCKOUT_IP_WINDOW", auth.Lockout.IPWindow)

	auth.Blacklist.SweepInterval = getenvDuration("BLACKLIST_SWEEP_INTERVAL", auth.Blacklist.SweepInterval)

	return Config{
		Server: ServerConfig{
			Addr:    getenv("SERVER_ADDR", ":8080"),
			GinMode: getenv("GIN_MODE", "release"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getenv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		},
		Auth: auth,
	}, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
