package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/adminauth/pkg/auth"
	"github.com/joho/godotenv"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Alerts    AlertConfig
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
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret           string
	Issuer              string
	SessionTTL          time.Duration
	MaxFailedAttempts   int
	LockDuration        time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
	DelayOnSuccess      bool
	EventBufferSize     int
	SweepSchedule       string
}

// Policy is a fixed-window limit: MaxAttempts per Window
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

type RateLimitConfig struct {
	Backend       string
	Login         Policy
	API           Policy
	PasswordReset Policy
}

type RedisConfig struct {
	URL string
}

// AlertConfig enables security alert emails when Recipient is set
type AlertConfig struct {
	Recipient   string
	FromAddress string
	AWSRegion   string
}

func (a AlertConfig) Enabled() bool {
	return a.Recipient != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "adminauth"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			Issuer:              getEnv("JWT_ISSUER", "adminauth"),
			SessionTTL:          getEnvAsDuration("SESSION_TTL", 8*time.Hour),
			MaxFailedAttempts:   getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			LockDuration:        getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
			DelayOnSuccess:      getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),
			EventBufferSize:     getEnvAsInt("SECURITY_EVENT_BUFFER", 1024),
			SweepSchedule:       getEnv("MAINTENANCE_SCHEDULE", "@every 10m"),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
			Login: Policy{
				MaxAttempts: getEnvAsInt("LOGIN_RATE_LIMIT_MAX", 5),
				Window:      getEnvAsDuration("LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute),
			},
			API: Policy{
				MaxAttempts: getEnvAsInt("API_RATE_LIMIT_MAX", 100),
				Window:      getEnvAsDuration("API_RATE_LIMIT_WINDOW", 1*time.Minute),
			},
			PasswordReset: Policy{
				MaxAttempts: getEnvAsInt("PASSWORD_RESET_RATE_LIMIT_MAX", 3),
				Window:      getEnvAsDuration("PASSWORD_RESET_RATE_LIMIT_WINDOW", 1*time.Hour),
			},
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Alerts: AlertConfig{
			Recipient:   getEnv("SECURITY_ALERT_EMAIL", ""),
			FromAddress: getEnv("SECURITY_ALERT_FROM", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := auth.ValidateSigningKey(jwtSecret); err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	for name, p := range map[string]Policy{
		"login":          c.RateLimit.Login,
		"api":            c.RateLimit.API,
		"password reset": c.RateLimit.PasswordReset,
	} {
		if p.MaxAttempts <= 0 || p.Window <= 0 {
			return fmt.Errorf("%s rate limit must have positive attempts and window", name)
		}
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}

	if c.Auth.MaxFailedAttempts <= 0 || c.Auth.LockDuration <= 0 {
		return fmt.Errorf("lockout policy must have positive attempts and duration")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.Alerts.Enabled() && c.Alerts.FromAddress == "" {
		return fmt.Errorf("SECURITY_ALERT_FROM is required when SECURITY_ALERT_EMAIL is set")
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
