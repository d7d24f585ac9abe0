package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // timezone database for hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ketracker/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig           `mapstructure:"server"`
	KazanExpress KazanExpressConfig     `mapstructure:"kazanexpress"`
	Engine       EngineConfig           `mapstructure:"engine"`
	Schedule     ScheduleConfig         `mapstructure:"schedule"`
	Notify       NotifyConfig           `mapstructure:"notify"`
	Journal      JournalConfig          `mapstructure:"journal"`
	RateLimit    RateLimitConfig        `mapstructure:"ratelimit"`
	Log          LogConfig              `mapstructure:"log"`
	Targets      []domain.TrackedTarget `mapstructure:"targets"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// KazanExpressConfig holds marketplace API configuration
type KazanExpressConfig struct {
	ProductURL string        `mapstructure:"product_url"`
	ReviewsURL string        `mapstructure:"reviews_url"`
	ActionsURL string        `mapstructure:"actions_url"`
	GraphQLURL string        `mapstructure:"graphql_url"`
	WebURL     string        `mapstructure:"web_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RPS        float64       `mapstructure:"rps"`
	Burst      int           `mapstructure:"burst"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"` // 0 disables the response cache
}

// EngineConfig holds resolution engine limits
type EngineConfig struct {
	Workers          int           `mapstructure:"workers"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	ExtraSearchPages int           `mapstructure:"extra_search_pages"` // scan pages allowed beyond the declared total
}

// ScheduleConfig holds the periodic run settings
type ScheduleConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Timezone       string        `mapstructure:"timezone"`
	DailyHour      int           `mapstructure:"daily_hour"`
	StockInterval  time.Duration `mapstructure:"stock_interval"`
	ChangeInterval time.Duration `mapstructure:"change_interval"`
}

// Location resolves Timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// NotifyConfig holds notification sink configuration
type NotifyConfig struct {
	TelegramToken   string   `mapstructure:"telegram_token"`
	TelegramChatIDs []string `mapstructure:"telegram_chat_ids"`
	TelegramBaseURL string   `mapstructure:"telegram_base_url"`
}

// JournalConfig holds journal sink configuration
type JournalConfig struct {
	Type     string `mapstructure:"type"` // "memory" or "sqlite"
	Path     string `mapstructure:"path"`
	Capacity int    `mapstructure:"capacity"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ketracker/")

	// Environment variable settings: server.port -> KETRACKER_SERVER_PORT
	v.SetEnvPrefix("KETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default so
// that AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("kazanexpress.product_url", "https://api.kazanexpress.ru/api/v2/product")
	v.SetDefault("kazanexpress.reviews_url", "https://api.kazanexpress.ru/api/product")
	v.SetDefault("kazanexpress.actions_url", "https://api.kazanexpress.ru/api/product/actions")
	v.SetDefault("kazanexpress.graphql_url", "https://graphql.kazanexpress.ru")
	v.SetDefault("kazanexpress.web_url", "https://kazanexpress.ru")
	v.SetDefault("kazanexpress.timeout", "30s")
	v.SetDefault("kazanexpress.max_retries", 3)
	v.SetDefault("kazanexpress.rps", 5)
	v.SetDefault("kazanexpress.burst", 10)
	v.SetDefault("kazanexpress.cache_ttl", "30s")

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.call_timeout", "2m")
	v.SetDefault("engine.extra_search_pages", 3)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.timezone", "Europe/Moscow")
	v.SetDefault("schedule.daily_hour", 9)
	v.SetDefault("schedule.stock_interval", "2m")
	v.SetDefault("schedule.change_interval", "2m")

	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_ids", []string{})
	v.SetDefault("notify.telegram_base_url", "https://api.telegram.org")

	v.SetDefault("journal.type", "memory")
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.capacity", 1000)

	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Engine.Workers <= 0 {
		return fmt.Errorf("engine workers must be positive, got: %d", config.Engine.Workers)
	}
	if config.Engine.CallTimeout <= 0 {
		return fmt.Errorf("engine call timeout must be positive, got: %s", config.Engine.CallTimeout)
	}
	if config.Engine.ExtraSearchPages < 0 {
		return fmt.Errorf("engine extra search pages must not be negative, got: %d", config.Engine.ExtraSearchPages)
	}

	if config.KazanExpress.CacheTTL < 0 {
		return fmt.Errorf("kazanexpress cache ttl must not be negative, got: %s", config.KazanExpress.CacheTTL)
	}

	if config.Schedule.DailyHour < 0 || config.Schedule.DailyHour > 23 {
		return fmt.Errorf("schedule daily hour must be in 0..23, got: %d", config.Schedule.DailyHour)
	}
	if _, err := config.Schedule.Location(); err != nil {
		return fmt.Errorf("unknown schedule timezone %q: %w", config.Schedule.Timezone, err)
	}

	if config.Notify.TelegramToken != "" && len(config.Notify.TelegramChatIDs) == 0 {
		return fmt.Errorf("telegram chat ids are required when a telegram token is set (set KETRACKER_NOTIFY_TELEGRAM_CHAT_IDS)")
	}

	if config.Journal.Type != "memory" && config.Journal.Type != "sqlite" {
		return fmt.Errorf("journal type must be 'memory' or 'sqlite', got: %s", config.Journal.Type)
	}
	if config.Journal.Type == "sqlite" && config.Journal.Path == "" {
		return fmt.Errorf("journal path is required when journal type is 'sqlite'")
	}

	return nil
}

// loadEnvFile exports ./.env into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
