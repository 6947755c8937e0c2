package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Grocery   GroceryConfig   `mapstructure:"grocery"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN builds the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type GroceryConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	AppKey     string `mapstructure:"app_key"`
	StoreID    string `mapstructure:"store_id"`
	Token      string `mapstructure:"token"`
	RenderID   string `mapstructure:"render_id"`
	PageSize   int    `mapstructure:"page_size"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	RetryCount int    `mapstructure:"retry_count"`
}

func (c *GroceryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type FetchConfig struct {
	DeptConcurrency    int    `mapstructure:"dept_concurrency"`
	DetailConcurrency  int    `mapstructure:"detail_concurrency"`
	BufferSize         int    `mapstructure:"buffer_size"`
	DryRun             bool   `mapstructure:"dry_run"`
	Resume             bool   `mapstructure:"resume"`
	ResumeAllStatuses  bool   `mapstructure:"resume_all_statuses"`
	Pacing             string `mapstructure:"pacing"`
	ThrottleIntervalMs int    `mapstructure:"throttle_interval_ms"`
}

type RateLimitConfig struct {
	MaxRetries        int     `mapstructure:"max_retries"`
	BaseDelayMs       int     `mapstructure:"base_delay_ms"`
	MaxDelayMs        int     `mapstructure:"max_delay_ms"`
	JitterRatio       float64 `mapstructure:"jitter_ratio"`
	RespectRetryAfter bool    `mapstructure:"respect_retry_after"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	StatusCodes       []int   `mapstructure:"status_codes"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/catalog.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("grocery.base_url", "https://api.freshop.ncrcloud.com/1")
	v.SetDefault("grocery.page_size", 96)
	v.SetDefault("grocery.timeout_sec", 20)
	v.SetDefault("grocery.retry_count", 3)
	v.SetDefault("fetch.dept_concurrency", 4)
	v.SetDefault("fetch.detail_concurrency", 8)
	v.SetDefault("fetch.buffer_size", 200)
	v.SetDefault("fetch.dry_run", false)
	v.SetDefault("fetch.resume", true)
	v.SetDefault("fetch.resume_all_statuses", false)
	v.SetDefault("fetch.pacing", "concurrent")
	v.SetDefault("fetch.throttle_interval_ms", 5000)
	v.SetDefault("rate_limit.max_retries", 8)
	v.SetDefault("rate_limit.base_delay_ms", 500)
	v.SetDefault("rate_limit.max_delay_ms", 30000)
	v.SetDefault("rate_limit.jitter_ratio", 0.2)
	v.SetDefault("rate_limit.respect_retry_after", true)
	v.SetDefault("rate_limit.backoff_multiplier", 2.0)
	v.SetDefault("rate_limit.status_codes", []int{429, 400})

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("grocery.app_key", "GROCERY_APP_KEY")
	v.BindEnv("grocery.store_id", "GROCERY_STORE_ID")
	v.BindEnv("grocery.token", "GROCERY_TOKEN")
	v.BindEnv("grocery.render_id", "GROCERY_RENDER_ID")
	v.BindEnv("grocery.base_url", "GROCERY_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
