package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Redis        RedisConfig
	Attendance   AttendanceConfig
	Notification NotificationConfig
	Cron         CronConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Name               string
	Port               int
	Env                string
	Version            string
	LogLevel           string
	CORSAllowedOrigins []string
}

// RedisConfig holds the idempotency cache connection. An empty Addr disables the cache.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// AttendanceConfig holds clock policy values
type AttendanceConfig struct {
	EarlyEntryGrace time.Duration
	StatusCarryOver time.Duration
	DefaultTimezone string
}

type NotificationConfig struct {
	Workers   int
	QueueSize int
}

// CronConfig controls the open cycle reminder. A zero StaleAfter disables it.
type CronConfig struct {
	OpenCycleStaleAfter time.Duration
	OpenCycleInterval   time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	runMigrations, err := strconv.ParseBool(getEnv("DB_RUN_MIGRATIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RUN_MIGRATIONS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          dbPort,
		User:          getEnv("DB_USER", "postgres"),
		Password:      getEnv("DB_PASSWORD", ""),
		Name:          getEnv("DB_NAME", "attendance_ledger"),
		SSLMode:       getEnv("DB_SSLMODE", "disable"),
		MaxConns:      int32(maxConns),
		MinConns:      int32(minConns),
		RunMigrations: runMigrations,
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	idempotencyTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:           getEnv("REDIS_ADDR", ""),
		Password:       getEnv("REDIS_PASSWORD", ""),
		DB:             redisDB,
		IdempotencyTTL: idempotencyTTL,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Name:               getEnv("APP_NAME", "attendance-ledger"),
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		Version:            getEnv("APP_VERSION", "v1.0.0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Attendance policy
	graceMinutes, err := strconv.Atoi(getEnv("EARLY_ENTRY_GRACE_MINUTES", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid EARLY_ENTRY_GRACE_MINUTES: %w", err)
	}
	carryOver, err := time.ParseDuration(getEnv("STATUS_CARRY_OVER", "16h"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATUS_CARRY_OVER: %w", err)
	}

	config.Attendance = AttendanceConfig{
		EarlyEntryGrace: time.Duration(graceMinutes) * time.Minute,
		StatusCarryOver: carryOver,
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
	}

	// Notification dispatcher
	workers, err := strconv.Atoi(getEnv("NOTIFY_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_WORKERS: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnv("NOTIFY_QUEUE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_QUEUE_SIZE: %w", err)
	}

	config.Notification = NotificationConfig{
		Workers:   workers,
		QueueSize: queueSize,
	}

	// Background jobs
	staleAfter, err := time.ParseDuration(getEnv("OPEN_CYCLE_STALE_AFTER", "14h"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPEN_CYCLE_STALE_AFTER: %w", err)
	}
	checkInterval, err := time.ParseDuration(getEnv("OPEN_CYCLE_CHECK_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPEN_CYCLE_CHECK_INTERVAL: %w", err)
	}

	config.Cron = CronConfig{
		OpenCycleStaleAfter: staleAfter,
		OpenCycleInterval:   checkInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.EarlyEntryGrace < 0 {
		return fmt.Errorf("EARLY_ENTRY_GRACE_MINUTES must not be negative")
	}
	if c.Cron.OpenCycleStaleAfter > 0 && c.Cron.OpenCycleInterval <= 0 {
		return fmt.Errorf("OPEN_CYCLE_CHECK_INTERVAL must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if _, err := time.LoadLocation(c.Attendance.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
