package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration
type Config struct {
	Port              string
	JWTSecret         string
	AdminPasswordHash string
	Timezone          *time.Location
	Database          DatabaseConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
	Log               LogConfig
	Session           SessionConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Silent   bool
}

// RedisConfig points at the session-token registry
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig configures the activity event stream. An empty Broker disables it.
type KafkaConfig struct {
	Broker        string
	ActivityTopic string
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig holds session lifetime settings
type SessionConfig struct {
	MaxAge             time.Duration
	RevalidateInterval time.Duration
	ReconcileInterval  time.Duration
	SweepInterval      time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	adminHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminHash == "" {
		plain := os.Getenv("ADMIN_PASSWORD")
		if plain == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), 10)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		adminHash = string(hash)
	}

	loc := time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		loc = l
	}

	maxAge, err := getDurationEnv("SESSION_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	revalidate, err := getDurationEnv("SESSION_REVALIDATE_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	reconcile, err := getDurationEnv("RECONCILE_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	sweep, err := getDurationEnv("SESSION_SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnv("PORT", "3210"),
		JWTSecret:         jwtSecret,
		AdminPasswordHash: adminHash,
		Timezone:          loc,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "centerhub"),
			Silent:   getBoolEnv("DB_SILENT", false),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Broker:        os.Getenv("KAFKA_BROKER"),
			ActivityTopic: getEnv("KAFKA_ACTIVITY_TOPIC", "center-activities"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Session: SessionConfig{
			MaxAge:             maxAge,
			RevalidateInterval: revalidate,
			ReconcileInterval:  reconcile,
			SweepInterval:      sweep,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
