package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/canchaya/canchaya/pkg/storage"
)

// Config holds all CanchaYA service configuration.
type Config struct {
	Storage       StorageConfig       `mapstructure:"storage"`
	Server        ServerConfig        `mapstructure:"server"`
	Geocode       GeocodeConfig       `mapstructure:"geocode"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Alerts        AlertsConfig        `mapstructure:"alerts"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Reports       ReportsConfig       `mapstructure:"reports"`
	Format        FormatConfig        `mapstructure:"format"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // sqlite, redis or memory
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the Redis backend connection.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Options converts the config to storage.Options.
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:        s.Driver,
		Path:          s.Path,
		RedisAddr:     s.Redis.Addr,
		RedisPassword: s.Redis.Password,
		RedisDB:       s.Redis.DB,
		KeyPrefix:     s.Redis.KeyPrefix,
	}
}

// ServerConfig defines the HTTP API.
type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// GeocodeConfig defines the address-search client.
type GeocodeConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

// NotificationsConfig defines the in-app dispatcher.
type NotificationsConfig struct {
	HistoryLimit int  `mapstructure:"history_limit"`
	Console      bool `mapstructure:"console"` // echo toasts to stdout
}

// AlertsConfig defines the delivery integrations for fired alerts.
type AlertsConfig struct {
	Email EmailConfig   `mapstructure:"email"`
	Push  WebhookConfig `mapstructure:"push"`
	SMS   WebhookConfig `mapstructure:"sms"`
	Slack SlackConfig   `mapstructure:"slack"`
}

// EmailConfig defines SMTP delivery. An empty host logs instead of sending.
type EmailConfig struct {
	Host       string   `mapstructure:"host"`
	Port       int      `mapstructure:"port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines an HTTP gateway.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// MetricsConfig defines the metric poller.
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Path     string        `mapstructure:"path"`
	Token    string        `mapstructure:"token"`
	Interval time.Duration `mapstructure:"interval"`
}

// ReportsConfig defines scheduled report exports.
type ReportsConfig struct {
	Schedule string `mapstructure:"schedule"` // cron spec, empty disables
	Format   string `mapstructure:"format"`
	Dir      string `mapstructure:"dir"`
}

// FormatConfig defines display formatting.
type FormatConfig struct {
	Locale string `mapstructure:"locale"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".canchaya"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".canchaya", "canchaya.db"))
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.key_prefix", "canchaya")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "CanchaYA/1.0 (+https://canchaya.app)")
	v.SetDefault("geocode.timeout", "10s")
	v.SetDefault("geocode.cache_ttl", "720h") // 30 days
	v.SetDefault("geocode.batch_delay", "1s")
	v.SetDefault("notifications.history_limit", 100)
	v.SetDefault("alerts.email.port", 587)
	v.SetDefault("alerts.email.from", "alertas@canchaya.app")
	v.SetDefault("alerts.slack.channel", "#canchaya-ops")
	v.SetDefault("metrics.interval", "30s")
	v.SetDefault("reports.format", "csv")
	v.SetDefault("reports.dir", filepath.Join(home, ".canchaya", "reports"))
	v.SetDefault("format.locale", "es-AR")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("CYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q: want sqlite, redis or memory", c.Storage.Driver)
	}
	if c.Notifications.HistoryLimit <= 0 {
		return fmt.Errorf("notifications.history_limit must be positive, got %d", c.Notifications.HistoryLimit)
	}
	return nil
}
