package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	EmailProviderResend = "resend"
	EmailProviderSMTP   = "smtp"

	RecordsBackendDatabase = "database"
	RecordsBackendREST     = "rest"
)

// Config represents the runtime configuration for the relay.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	SMS         SMSConfig         `mapstructure:"sms"`
	Records     RecordsConfig     `mapstructure:"records"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Fanout      FanoutConfig      `mapstructure:"fanout"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	LogEncoding     string          `mapstructure:"log_encoding"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP and route.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends. Without Redis the database backs the cache.
type CacheConfig struct {
	Redis         RedisCacheConfig `mapstructure:"redis"`
	ActiveFeedTTL time.Duration    `mapstructure:"active_feed_ttl"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig describes how bearer tokens from the hosted auth service are verified.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// EmailConfig selects and configures the outbound email provider.
type EmailConfig struct {
	Provider string       `mapstructure:"provider"`
	Resend   ResendConfig `mapstructure:"resend"`
	SMTP     SMTPConfig   `mapstructure:"smtp"`
}

// ResendConfig configures the Resend HTTP API.
type ResendConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	From    string        `mapstructure:"from"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMSConfig configures the SMS gateway.
type SMSConfig struct {
	Semaphore SemaphoreConfig `mapstructure:"semaphore"`
}

// SemaphoreConfig configures the Semaphore SMS API.
type SemaphoreConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	SenderName string        `mapstructure:"sender_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RecordsConfig selects where notification records are written.
type RecordsConfig struct {
	Backend string `mapstructure:"backend"`
}

// BackendConfig points at the hosted database REST interface.
type BackendConfig struct {
	URL        string        `mapstructure:"url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// FanoutConfig sizes the notification record write queue.
type FanoutConfig struct {
	RecordQueueSize    int           `mapstructure:"record_queue_size"`
	RecordWorkers      int           `mapstructure:"record_workers"`
	RecordWriteTimeout time.Duration `mapstructure:"record_write_timeout"`
}

// StorageConfig configures S3-compatible evidence storage.
type StorageConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// RealtimeConfig lists extra origins allowed to open websocket streams.
type RealtimeConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MonitoringConfig toggles the metrics endpoint.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig controls background cleanup. A zero retention keeps records forever.
type MaintenanceConfig struct {
	RecordRetentionDays int `mapstructure:"record_retention_days"`
}

// LoadConfig reads config.yaml from ./config or any of paths, then applies SOSRELAY_* environment
// overrides. A missing file is not an error; defaults and the environment still apply.
func LoadConfig(paths ...string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}
	return decode(v)
}

// LoadConfigFile reads one explicit configuration file. Its format follows the extension.
func LoadConfigFile(file string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", file, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	setDefaults(v)
	v.SetEnvPrefix("SOSRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &config, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}

	var err error
	missing := func(key string) {
		err = multierr.Append(err, fmt.Errorf("config: %s is required", key))
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		missing("auth.jwt_secret")
	}

	switch c.emailProvider() {
	case EmailProviderResend:
		if strings.TrimSpace(c.Email.Resend.APIKey) == "" {
			missing("email.resend.api_key")
		}
	case EmailProviderSMTP:
		if strings.TrimSpace(c.Email.SMTP.Host) == "" {
			missing("email.smtp.host")
		}
	default:
		err = multierr.Append(err, fmt.Errorf("config: unsupported email.provider %q", c.Email.Provider))
	}

	if strings.TrimSpace(c.SMS.Semaphore.APIKey) == "" {
		missing("sms.semaphore.api_key")
	}

	err = multierr.Append(err, c.Database.validate())

	switch c.RecordsBackend() {
	case RecordsBackendDatabase:
	case RecordsBackendREST:
		if strings.TrimSpace(c.Backend.URL) == "" {
			missing("backend.url")
		}
		if strings.TrimSpace(c.Backend.ServiceKey) == "" {
			missing("backend.service_key")
		}
	default:
		err = multierr.Append(err, fmt.Errorf("config: unsupported records.backend %q", c.Records.Backend))
	}

	if c.Storage.Enabled && strings.TrimSpace(c.Storage.Endpoint) == "" {
		missing("storage.endpoint")
	}
	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		missing("cache.redis.address")
	}
	if c.Maintenance.RecordRetentionDays < 0 {
		err = multierr.Append(err, errors.New("config: maintenance.record_retention_days must not be negative"))
	}

	return err
}

// RecordsBackend returns the normalised records backend name.
func (c *Config) RecordsBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Records.Backend))
}

func (c *Config) emailProvider() string {
	return normalizeProvider(c.Email.Provider)
}

func normalizeProvider(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_encoding", "json")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/sosrelay.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")

	v.SetDefault("cache.active_feed_ttl", "5s")
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")

	v.SetDefault("email.provider", EmailProviderResend)
	v.SetDefault("email.resend.api_key", "")
	v.SetDefault("email.resend.base_url", "https://api.resend.com")
	v.SetDefault("email.resend.from", "Emergency Alert <onboarding@resend.dev>")
	v.SetDefault("email.resend.timeout", "10s")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("sms.semaphore.api_key", "")
	v.SetDefault("sms.semaphore.base_url", "https://api.semaphore.co")
	v.SetDefault("sms.semaphore.sender_name", "EmergencyPH")
	v.SetDefault("sms.semaphore.timeout", "10s")

	v.SetDefault("records.backend", RecordsBackendDatabase)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.service_key", "")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("fanout.record_queue_size", 256)
	v.SetDefault("fanout.record_workers", 2)
	v.SetDefault("fanout.record_write_timeout", "5s")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.max_upload_bytes", 50<<20)

	v.SetDefault("realtime.allowed_origins", []string{})

	v.SetDefault("monitoring.prometheus.enabled", true)

	v.SetDefault("maintenance.record_retention_days", 0)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
