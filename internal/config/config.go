/**
 * @description
 * Configuration management for the treasury API, its scheduler and its CLI.
 * Values come from environment variables, optionally from a .env file in the
 * given path.
 *
 * @dependencies
 * - github.com/spf13/viper: configuration from env and .env files.
 */
package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration of the treasury API process.
type Config struct {
	ServerPort               string   `mapstructure:"SERVER_PORT"`
	DatabaseURL              string   `mapstructure:"DATABASE_URL"`
	InternalAPIKey           string   `mapstructure:"INTERNAL_API_KEY"`
	AdminJWTSecret           string   `mapstructure:"ADMIN_JWT_SECRET"`
	BusinessTimezone         string   `mapstructure:"BUSINESS_TIMEZONE"`
	RabbitMQURL              string   `mapstructure:"RABBITMQ_URL"`
	EventsExchange           string   `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL                 string   `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string   `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	ReportRateLimitPerMinute int      `mapstructure:"REPORT_RATE_LIMIT_PER_MINUTE"`
	MetricsEnabled           bool     `mapstructure:"METRICS_ENABLED"`
	CORSAllowedOriginsRaw    string   `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CORSAllowedOrigins       []string `mapstructure:"-"`
}

// SchedulerConfig holds the configuration of the alert scheduler process.
type SchedulerConfig struct {
	TreasuryServiceURL        string `mapstructure:"TREASURY_SERVICE_URL"`
	InternalAPIKey            string `mapstructure:"INTERNAL_API_KEY"`
	BusinessTimezone          string `mapstructure:"BUSINESS_TIMEZONE"`
	OverdueAlertJobSchedule   string `mapstructure:"OVERDUE_ALERT_JOB_SCHEDULE"`
	UpcomingDigestJobSchedule string `mapstructure:"UPCOMING_DIGEST_JOB_SCHEDULE"`
}

func readEnvFile(path string) {
	if path == "" {
		return
	}
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}
}

// LoadConfig reads the API configuration.
func LoadConfig(path string) (config Config, err error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BUSINESS_TIMEZONE", "Europe/Paris")
	viper.SetDefault("EVENTS_EXCHANGE", "mentora.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "treasury:rate_limit")
	viper.SetDefault("REPORT_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "TREASURY_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("ADMIN_JWT_SECRET")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "TREASURY_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("REPORT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("METRICS_ENABLED")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	readEnvFile(path)

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.AdminJWTSecret = strings.TrimSpace(config.AdminJWTSecret)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "treasury:rate_limit"
	}
	if config.ReportRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative report rate limit; disabling\" value=%d", config.ReportRateLimitPerMinute)
		config.ReportRateLimitPerMinute = 0
	}
	config.CORSAllowedOrigins = splitList(config.CORSAllowedOriginsRaw)

	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL is required")
	}
	return config, nil
}

// LoadSchedulerConfig reads the scheduler configuration.
func LoadSchedulerConfig(path string) (*SchedulerConfig, error) {
	viper.AutomaticEnv()

	viper.SetDefault("TREASURY_SERVICE_URL", "http://localhost:8080")
	viper.SetDefault("BUSINESS_TIMEZONE", "Europe/Paris")
	viper.SetDefault("OVERDUE_ALERT_JOB_SCHEDULE", "0 8 * * 1-5")   // At 08:00 on weekdays.
	viper.SetDefault("UPCOMING_DIGEST_JOB_SCHEDULE", "0 7 * * 1") // At 07:00 on Monday.

	_ = viper.BindEnv("TREASURY_SERVICE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "TREASURY_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("OVERDUE_ALERT_JOB_SCHEDULE")
	_ = viper.BindEnv("UPCOMING_DIGEST_JOB_SCHEDULE")

	readEnvFile(path)

	var config SchedulerConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.TreasuryServiceURL = strings.TrimRight(strings.TrimSpace(config.TreasuryServiceURL), "/")
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	if config.TreasuryServiceURL == "" {
		return nil, errors.New("TREASURY_SERVICE_URL is required")
	}
	return &config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
