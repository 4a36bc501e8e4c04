package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Email    EmailConfig    `mapstructure:"email"`
	Import   ImportConfig   `mapstructure:"import"`
	Send     SendConfig     `mapstructure:"send"`
	AI       AIConfig       `mapstructure:"ai"`
}

// ServerConfig holds HTTP server configuration. WriteTimeout bounds a whole
// response, including a synchronous send batch.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Tokens       TokenConfig        `mapstructure:"tokens"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	// EncryptionKey is a hex-encoded 32 byte key used to seal stored SMTP passwords
	EncryptionKey string `mapstructure:"encryption_key"`
}

// TokenConfig holds JWT token configuration
type TokenConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
}

// EmailConfig holds mail transport configuration
type EmailConfig struct {
	// Provider is the transport used for campaign sends: "smtp", "gmail" or "noop"
	Provider string `mapstructure:"provider"`
	// AppName is shown in test emails
	AppName string `mapstructure:"app_name"`
	// SkipTLSVerify disables certificate verification for SMTP servers with self-signed certs
	SkipTLSVerify bool        `mapstructure:"skip_tls_verify"`
	Gmail         GmailConfig `mapstructure:"gmail"`
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
	// SenderAddress is the "From" email address
	SenderAddress string `mapstructure:"sender_address"`
	// SenderName is the display name for the sender
	SenderName string `mapstructure:"sender_name"`
}

// ImportConfig holds spreadsheet import settings
type ImportConfig struct {
	DefaultTrainerCivility string `mapstructure:"default_trainer_civility"`
	DefaultRDVWorkingDays  int    `mapstructure:"default_rdv_working_days"`
	MaxUploadMB            int64  `mapstructure:"max_upload_mb"`
}

// SendConfig holds bulk send settings
type SendConfig struct {
	// RetryFailedWithoutForce lets a plain send retry recipients whose only
	// history entries are Failed. Off by default.
	RetryFailedWithoutForce bool          `mapstructure:"retry_failed_without_force"`
	ProgressTTL             time.Duration `mapstructure:"progress_ttl"`
	LockTTL                 time.Duration `mapstructure:"lock_ttl"`
}

// AIConfig holds confirmation message generator settings
type AIConfig struct {
	// Provider is "openai" or "none"
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from an explicit file when path is non-empty,
// falling back to the default search paths otherwise.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mailpilot")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MAILPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.auto_migrate", false)
	v.SetDefault("server.migrations_path", "migrations")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mailpilot")
	v.SetDefault("database.user", "mailpilot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security defaults
	v.SetDefault("security.tokens.secret", "")
	v.SetDefault("security.tokens.issuer", "mailpilot")
	v.SetDefault("security.tokens.token_ttl", "24h")
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.default_limit", 100)
	v.SetDefault("security.rate_limiting.default_window", "1m")
	v.SetDefault("security.encryption_key", "")

	// Email defaults
	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.app_name", "Mail Pilot")
	v.SetDefault("email.skip_tls_verify", true)
	v.SetDefault("email.gmail.sender_name", "Mail Pilot")

	// Import defaults
	v.SetDefault("import.default_trainer_civility", "M.")
	v.SetDefault("import.default_rdv_working_days", 2)
	v.SetDefault("import.max_upload_mb", 10)

	// Send defaults
	v.SetDefault("send.retry_failed_without_force", false)
	v.SetDefault("send.progress_ttl", "1h")
	v.SetDefault("send.lock_ttl", "30m")

	// AI defaults
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.model", "gpt-4o-mini")
}
