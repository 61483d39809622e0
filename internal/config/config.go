package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Rewards  RewardsConfig
	Broker   BrokerConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
	LogLevel     string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret  string
	CronSecret string
}

type RewardsConfig struct {
	Enabled  bool
	Schedule string
	Timezone string
	Location *time.Location
	Holidays []time.Time
	Workers  int
}

type BrokerConfig struct {
	URL   string
	Queue string
}

const (
	minRewardWorkers = 1
	maxRewardWorkers = 32
)

// Expiry sweep cadence for subscriptions whose window closed.
const SubscriptionExpiryInterval = 1 * time.Hour

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	rewardsEnabled, _ := strconv.ParseBool(getEnv("REWARDS_ENABLED", "true"))
	workers, _ := strconv.Atoi(getEnv("REWARDS_WORKERS", "4"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dpbazaar"),
			Password: getEnv("DB_PASSWORD", "dpbazaar"),
			Name:     getEnv("DB_NAME", "dpbazaar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			CronSecret: getEnv("CRON_SECRET", ""),
		},
		Rewards: RewardsConfig{
			Enabled:  rewardsEnabled,
			Schedule: getEnv("REWARDS_SCHEDULE", "0 9 * * *"),
			Timezone: getEnv("REWARDS_TIMEZONE", "Asia/Kolkata"),
			Workers:  clampWorkers(workers),
		},
		Broker: BrokerConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "rewards.events"),
		},
	}

	loc, err := time.LoadLocation(cfg.Rewards.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REWARDS_TIMEZONE %q: %w", cfg.Rewards.Timezone, err)
	}
	cfg.Rewards.Location = loc

	holidays, err := ParseHolidays(getEnv("REWARDS_HOLIDAYS", ""), loc)
	if err != nil {
		return nil, err
	}
	cfg.Rewards.Holidays = holidays

	return cfg, nil
}

// ParseHolidays reads a comma separated list of YYYY-MM-DD dates in loc.
func ParseHolidays(raw string, loc *time.Location) ([]time.Time, error) {
	var days []time.Time
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := time.ParseInLocation(time.DateOnly, part, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", part, err)
		}
		days = append(days, day)
	}
	return days, nil
}

func clampWorkers(n int) int {
	if n < minRewardWorkers {
		return minRewardWorkers
	}
	if n > maxRewardWorkers {
		return maxRewardWorkers
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
