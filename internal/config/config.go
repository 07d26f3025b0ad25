// Package config loads application configuration from environment variables.
// An optional .env file in the working directory is read first; variables
// already present in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLength mirrors the shortest secret the token codec accepts.
const MinJWTSecretLength = 32

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env             string        // APP_ENV
	Port            string        // APP_PORT
	DBUser          string        // DB_USER
	DBPass          string        // DB_PASS (optional)
	DBHost          string        // DB_HOST
	DBPort          string        // DB_PORT
	DBName          string        // DB_NAME
	JWTSecret       string        // JWT_SECRET
	AccessTTL       time.Duration // ACCESS_TOKEN_TTL
	RefreshTTL      time.Duration // REFRESH_TOKEN_TTL
	BcryptCost      int           // BCRYPT_COST
	LogLevel        string        // LOG_LEVEL
	LogPretty       bool          // LOG_PRETTY
	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT

	Revocation RevocationConfig
	Events     EventsConfig
}

// RevocationConfig controls the token blacklist.
type RevocationConfig struct {
	Enabled              bool   // REVOCATION_ENABLED
	Backend              string // REVOCATION_BACKEND: redis or mysql
	FailOpen             bool   // REVOCATION_FAIL_OPEN
	Prefix               string // REVOCATION_PREFIX
	LogoutRevokesRefresh bool   // LOGOUT_REVOKES_REFRESH
}

// EventsConfig controls auth event publishing and the audit consumer.
type EventsConfig struct {
	Enabled      bool   // EVENTS_ENABLED
	URL          string // RABBITMQ_URL or AMQP_URL
	ConsumeAudit bool   // AUDIT_CONSUMER_ENABLED
	AuditLogPath string // AUDIT_LOG_PATH
}

// Load reads configuration from the environment. Every missing required
// variable and every invalid value is reported in a single error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          envStr("DB_PORT", "3306"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTL:       envDur("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:      envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:      envInt("BCRYPT_COST", 12),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogPretty:       envBool("LOG_PRETTY", false),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Revocation: RevocationConfig{
			Enabled:              envBool("REVOCATION_ENABLED", true),
			Backend:              strings.ToLower(envStr("REVOCATION_BACKEND", "redis")),
			FailOpen:             envBool("REVOCATION_FAIL_OPEN", true),
			Prefix:               envStr("REVOCATION_PREFIX", "revoked"),
			LogoutRevokesRefresh: envBool("LOGOUT_REVOKES_REFRESH", true),
		},
		Events: EventsConfig{
			Enabled:      envBool("EVENTS_ENABLED", false),
			URL:          brokerURL(),
			ConsumeAudit: envBool("AUDIT_CONSUMER_ENABLED", false),
			AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/auth.log"),
		},
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within 4..31, got %d", cfg.BcryptCost))
	}
	if b := cfg.Revocation.Backend; b != "redis" && b != "mysql" {
		errs = append(errs, fmt.Errorf("REVOCATION_BACKEND must be redis or mysql, got %q", b))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func brokerURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

// envDur accepts Go durations ("15m", "168h") and, for the day-based
// lifetimes operators tend to write, a "d" suffix ("7d").
func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if strings.HasSuffix(v, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(v, "d")); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
