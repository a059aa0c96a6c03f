package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Redis     RedisConfig     `yaml:"redis"`
	Lock      LockConfig      `yaml:"lock"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	HTTPPort               int    `yaml:"http_port"`
	GRPCPort               int    `yaml:"grpc_port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// StorageConfig selects the repository implementation
type StorageConfig struct {
	Type           string `yaml:"type"` // "postgres" or "memory"
	MigrateOnStart bool   `yaml:"migrate_on_start"`
	SeedFile       string `yaml:"seed_file"` // memory only: vehicles and contacts loaded at start
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiry int    `yaml:"refresh_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// PricingConfig bounds client-supplied booking totals
type PricingConfig struct {
	OverrideTolerancePercent float64 `yaml:"override_tolerance_percent"`
	EnforceTolerance         bool    `yaml:"enforce_tolerance"`
}

// RedisConfig contains the connection used by the booking lock
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LockConfig contains per-vehicle booking lock timings
type LockConfig struct {
	TTLMs         int `yaml:"ttl_ms"`
	WaitTimeoutMs int `yaml:"wait_timeout_ms"`
}

const (
	ChannelLog   = "log"
	ChannelInbox = "inbox"
	ChannelAMQP  = "amqp"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

var knownChannels = []string{ChannelLog, ChannelInbox, ChannelAMQP, ChannelEmail, ChannelPush}

// NotifyConfig selects the notification channels and their credentials
type NotifyConfig struct {
	Channels                []string `yaml:"channels"`
	AMQPURL                 string   `yaml:"amqp_url"`
	AMQPQueue               string   `yaml:"amqp_queue"`
	SendGridAPIKey          string   `yaml:"sendgrid_api_key"`
	FromEmail               string   `yaml:"from_email"`
	FromName                string   `yaml:"from_name"`
	FirebaseCredentialsFile string   `yaml:"firebase_credentials_file"`
}

func (n NotifyConfig) Enabled(channel string) bool {
	return slices.Contains(n.Channels, channel)
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReconcileAvailability string `yaml:"reconcile_availability"`
	ReportFlaggedPricing  string `yaml:"report_flagged_pricing"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory is loaded first so its values can override the file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying environment
// overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
		c.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Notify
	if val := os.Getenv("NOTIFY_CHANNELS"); val != "" {
		c.Notify.Channels = splitList(val)
	}
	if val := os.Getenv("AMQP_URL"); val != "" {
		c.Notify.AMQPURL = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notify.SendGridAPIKey = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Notify.FirebaseCredentialsFile = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}

	// Storage validation
	if c.Storage.Type == "" {
		c.Storage.Type = StoragePostgres
	}
	switch c.Storage.Type {
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.JWT.RefreshTokenExpiry <= 0 {
		c.JWT.RefreshTokenExpiry = 7 * 24 * 60
	}

	// Pricing validation
	if c.Pricing.OverrideTolerancePercent < 0 {
		return fmt.Errorf("override tolerance must not be negative: %v", c.Pricing.OverrideTolerancePercent)
	}

	// Redis validation
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if c.Lock.TTLMs <= 0 {
		c.Lock.TTLMs = 5000
	}
	if c.Lock.WaitTimeoutMs <= 0 {
		c.Lock.WaitTimeoutMs = 2000
	}

	// Notify validation
	if len(c.Notify.Channels) == 0 {
		c.Notify.Channels = []string{ChannelLog}
	}
	for _, ch := range c.Notify.Channels {
		if !slices.Contains(knownChannels, ch) {
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}
	if c.Notify.Enabled(ChannelAMQP) && c.Notify.AMQPURL == "" {
		return fmt.Errorf("amqp url is required for the amqp channel")
	}
	if c.Notify.AMQPQueue == "" {
		c.Notify.AMQPQueue = "rental_events"
	}
	if c.Notify.Enabled(ChannelEmail) && (c.Notify.SendGridAPIKey == "" || c.Notify.FromEmail == "") {
		return fmt.Errorf("sendgrid api key and from email are required for the email channel")
	}
	if c.Notify.FromName == "" {
		c.Notify.FromName = "back-car"
	}
	if c.Notify.Enabled(ChannelPush) && c.Notify.FirebaseCredentialsFile == "" {
		return fmt.Errorf("firebase credentials file is required for the push channel")
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileAvailability == "" {
		c.Scheduler.ReconcileAvailability = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.ReportFlaggedPricing == "" {
		c.Scheduler.ReportFlaggedPricing = "0 0 6 * * *" // 6 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the HTTP listen address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetGRPCAddress returns the gRPC health listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenExpiry) * time.Minute
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Lock.TTLMs) * time.Millisecond
}

func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Lock.WaitTimeoutMs) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
