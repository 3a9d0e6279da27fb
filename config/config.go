package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"food-order-tracker/simulator"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultDSN keeps the menu in a shared in-memory SQLite database; it is
// rebuilt on every start.
const DefaultDSN = "file:menu?mode=memory&cache=shared"

type Config struct {
	Port        string
	GinMode     string
	DatabaseDSN string
	LogLevel    string
	LogFormat   string
	Delays      simulator.Delays
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		DatabaseDSN: getEnv("DATABASE_DSN", DefaultDSN),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	defaults := simulator.DefaultDelays()
	var err error
	if cfg.Delays.Received, err = getDuration("STATUS_DELAY_RECEIVED", defaults.Received); err != nil {
		return nil, err
	}
	if cfg.Delays.Preparing, err = getDuration("STATUS_DELAY_PREPARING", defaults.Preparing); err != nil {
		return nil, err
	}
	if cfg.Delays.OutForDelivery, err = getDuration("STATUS_DELAY_OUT_FOR_DELIVERY", defaults.OutForDelivery); err != nil {
		return nil, err
	}
	if cfg.Delays.Default, err = getDuration("STATUS_DELAY_DEFAULT", defaults.Default); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// OpenDB connects to the catalog database.
func OpenDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// an in-memory database lives only as long as a connection to it
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return db, nil
}
