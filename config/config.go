package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"highroll/database"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr       string   `yaml:"http_addr"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Honour X-Forwarded-For / X-Real-IP. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	// Rate limiting per client IP
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	// Database configuration
	DatabaseURL  string `yaml:"database_url"`
	DatabaseName string `yaml:"database_name"`

	// Session configuration
	SessionCookieName      string        `yaml:"session_cookie_name"`
	SessionTTL             time.Duration `yaml:"session_ttl"`
	SessionCacheSize       int           `yaml:"session_cache_size"`
	SessionCleanupInterval time.Duration `yaml:"session_cleanup_interval"`

	// Game configuration
	LeaderboardSize int `yaml:"leaderboard_size"`

	// Discord announcements (disabled when token or channel is empty)
	DiscordToken     string `yaml:"discord_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`

	// NATS event fan-out (disabled when empty)
	NATSURL string `yaml:"nats_url"`

	// Observability
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	LogLevel       string `yaml:"log_level"`

	// Environment
	Environment string `yaml:"environment"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DiscordEnabled reports whether high score announcements should be posted to Discord
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}

// Load builds the configuration from an optional YAML file and the environment.
// Environment variables always win over values from the file.
func Load(filename string) (*Config, error) {
	config := defaults()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		HTTPAddr:               ":3000",
		StaticDir:              "public",
		RateLimitPerSecond:     10,
		RateLimitBurst:         20,
		SessionCookieName:      "highroll.sid",
		SessionTTL:             24 * time.Hour,
		SessionCacheSize:       10000,
		SessionCleanupInterval: 10 * time.Minute,
		LeaderboardSize:        10,
		MetricsEnabled:         true,
		LogLevel:               "info",
	}
}

// applyEnv overrides config values with environment variables that are set
func applyEnv(config *Config) {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		config.HTTPAddr = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		config.StaticDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseURL = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		config.DatabaseName = v
	}
	if v := os.Getenv("SESSION_COOKIE_NAME"); v != "" {
		config.SessionCookieName = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionTTL = d
		}
	}
	if v := os.Getenv("SESSION_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.SessionCacheSize = n
		}
	}
	if v := os.Getenv("SESSION_CLEANUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionCleanupInterval = d
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		config.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.RateLimitPerSecond = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RateLimitBurst = n
		}
	}
	if v := os.Getenv("LEADERBOARD_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LeaderboardSize = n
		}
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		config.DiscordToken = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		config.DiscordChannelID = v
	}
	if v := os.Getenv("TRUST_PROXY_HEADERS"); v != "" {
		config.TrustProxyHeaders = v == "true"
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		config.NATSURL = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		config.MetricsEnabled = v == "true"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE must be positive")
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	config := defaults()
	config.Environment = "test"
	config.MetricsEnabled = false
	return config
}
