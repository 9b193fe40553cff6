package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Security SecurityConfig
	Alerts   AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// AuthConfig holds what this service needs to verify platform-issued
// session tokens. Token issuance lives elsewhere; only the shared HMAC
// secret is required here.
type AuthConfig struct {
	TokenSecret string
}

// SecurityConfig holds the account-security policy. It is passed into the
// services explicitly so tests can exercise different thresholds without
// wall-clock waits.
type SecurityConfig struct {
	MaxLoginAttempts  int           // failed attempts before a lockout opens
	LockoutDuration   time.Duration // how long a lockout holds
	AttemptWindow     time.Duration // trailing window for counting failures
	ResetTokenExpiry  time.Duration // password reset token lifetime
	MinPasswordLength int
	BcryptCost        int

	// LockoutFailClosed makes IsAccountLocked report "locked" when the
	// store is unreachable. The historical behavior fails open, favoring
	// login availability over lockout strictness.
	LockoutFailClosed bool

	// Declared policy knobs not yet enforced by any flow.
	PasswordHistoryCount int
	SessionTimeout       time.Duration

	// Retention for the background compactor.
	AttemptRetention time.Duration
	CompactInterval  time.Duration
}

// AlertConfig controls the optional lockout alert email.
type AlertConfig struct {
	Enabled         bool
	AWSRegion       string
	FromAddress     string
	OperatorAddress string
}

// DefaultSecurityConfig returns the production policy.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxLoginAttempts:     5,
		LockoutDuration:      15 * time.Minute,
		AttemptWindow:        15 * time.Minute,
		ResetTokenExpiry:     30 * time.Minute,
		MinPasswordLength:    8,
		BcryptCost:           12,
		LockoutFailClosed:    false,
		PasswordHistoryCount: 5,
		SessionTimeout:       120 * time.Minute,
		AttemptRetention:     30 * 24 * time.Hour,
		CompactInterval:      1 * time.Hour,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sec := DefaultSecurityConfig()
	sec.MaxLoginAttempts = getEnvAsInt("SECURITY_MAX_LOGIN_ATTEMPTS", sec.MaxLoginAttempts)
	sec.LockoutDuration = getEnvAsDuration("SECURITY_LOCKOUT_DURATION", sec.LockoutDuration)
	sec.AttemptWindow = getEnvAsDuration("SECURITY_ATTEMPT_WINDOW", sec.AttemptWindow)
	sec.ResetTokenExpiry = getEnvAsDuration("SECURITY_RESET_TOKEN_EXPIRY", sec.ResetTokenExpiry)
	sec.MinPasswordLength = getEnvAsInt("SECURITY_MIN_PASSWORD_LENGTH", sec.MinPasswordLength)
	sec.BcryptCost = getEnvAsInt("SECURITY_BCRYPT_COST", sec.BcryptCost)
	sec.LockoutFailClosed = getEnvAsBool("SECURITY_LOCKOUT_FAIL_CLOSED", sec.LockoutFailClosed)
	sec.AttemptRetention = getEnvAsDuration("SECURITY_ATTEMPT_RETENTION", sec.AttemptRetention)
	sec.CompactInterval = getEnvAsDuration("SECURITY_COMPACT_INTERVAL", sec.CompactInterval)

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "amparo"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("AUTH_TOKEN_SECRET", ""),
		},
		Security: sec,
		Alerts: AlertConfig{
			Enabled:         getEnvAsBool("ALERTS_ENABLED", false),
			AWSRegion:       getEnv("ALERTS_AWS_REGION", "us-east-1"),
			FromAddress:     getEnv("ALERTS_FROM_ADDRESS", ""),
			OperatorAddress: getEnv("ALERTS_OPERATOR_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if len(cfg.Auth.TokenSecret) < 32 {
		return nil, fmt.Errorf("AUTH_TOKEN_SECRET must be at least 32 characters")
	}

	if cfg.Alerts.Enabled && (cfg.Alerts.FromAddress == "" || cfg.Alerts.OperatorAddress == "") {
		return nil, fmt.Errorf("ALERTS_FROM_ADDRESS and ALERTS_OPERATOR_ADDRESS are required when alerts are enabled")
	}

	if err := validateSecurity(cfg.Security); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity rejects policy values that would disable the guard
func validateSecurity(sec SecurityConfig) error {
	if sec.MaxLoginAttempts < 1 {
		return fmt.Errorf("SECURITY_MAX_LOGIN_ATTEMPTS must be at least 1 (got %d)", sec.MaxLoginAttempts)
	}
	if sec.LockoutDuration <= 0 {
		return fmt.Errorf("SECURITY_LOCKOUT_DURATION must be positive")
	}
	if sec.AttemptWindow <= 0 {
		return fmt.Errorf("SECURITY_ATTEMPT_WINDOW must be positive")
	}
	if sec.MinPasswordLength < 8 {
		return fmt.Errorf("SECURITY_MIN_PASSWORD_LENGTH must be at least 8 (got %d)", sec.MinPasswordLength)
	}
	if sec.BcryptCost < 10 || sec.BcryptCost > 18 {
		return fmt.Errorf("SECURITY_BCRYPT_COST must be between 10 and 18 (got %d)", sec.BcryptCost)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
