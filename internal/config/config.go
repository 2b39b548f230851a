package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Admin     AdminConfig     `yaml:"admin"`
	JWT       JWTConfig       `yaml:"jwt"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects and configures the key-value persistence backend
type StoreConfig struct {
	Type     string         `yaml:"type"` // "file", "redis", "postgres" or "memory"
	File     FileStoreConfig `yaml:"file"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
}

type FileStoreConfig struct {
	Dir string `yaml:"dir"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
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

// AdminConfig carries the reserved super-admin identity and roster policy.
// Every field has a production default; deployments normally override the
// passwords only.
type AdminConfig struct {
	SuperAdminPhone  string   `yaml:"super_admin_phone"`
	SuperAdminEmails []string `yaml:"super_admin_emails"`
	// AdminPasswords entries starting with "$2" are bcrypt hashes; anything
	// else is compared as-is.
	AdminPasswords []string `yaml:"admin_passwords"`
	// StrictUpdates makes UpdateTeamMember report false when no roster entry
	// matches the id instead of the lenient always-true behavior.
	StrictUpdates bool `yaml:"strict_updates"`
}

// JWTConfig contains session token settings
type JWTConfig struct {
	Secret              string `yaml:"secret"`
	SessionExpiryMinutes int   `yaml:"session_expiry_minutes"`
}

// EmailConfig contains SendGrid notification settings
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RosterBackup string `yaml:"roster_backup"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration and fill defaults
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Store
	if val := os.Getenv("STORE_TYPE"); val != "" {
		c.Store.Type = val
	}
	if val := os.Getenv("STORE_DIR"); val != "" {
		c.Store.File.Dir = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Store.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Store.Redis.Password = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Store.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Store.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Store.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Store.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Store.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Store.Database.SSLMode = val
	}

	// Admin policy
	if val := os.Getenv("SUPER_ADMIN_PHONE"); val != "" {
		c.Admin.SuperAdminPhone = val
	}
	if val := os.Getenv("SUPER_ADMIN_EMAILS"); val != "" {
		c.Admin.SuperAdminEmails = splitAndTrim(val)
	}
	if val := os.Getenv("ADMIN_PASSWORDS"); val != "" {
		c.Admin.AdminPasswords = splitAndTrim(val)
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
		c.Email.Enabled = true
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// Validate checks if the configuration is valid and applies defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Store validation
	switch c.Store.Type {
	case "":
		c.Store.Type = "file"
	case "file", "redis", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}
	if c.Store.Type == "file" && c.Store.File.Dir == "" {
		c.Store.File.Dir = "./data"
	}
	if c.Store.Type == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis address is required for redis store")
	}
	if c.Store.Type == "postgres" {
		if c.Store.Database.Host == "" {
			return fmt.Errorf("database host is required for postgres store")
		}
		if c.Store.Database.User == "" {
			return fmt.Errorf("database user is required for postgres store")
		}
		if c.Store.Database.Database == "" {
			return fmt.Errorf("database name is required for postgres store")
		}
	}

	// Admin policy defaults: the reserved identity shipped with the original
	// application.
	if c.Admin.SuperAdminPhone == "" {
		c.Admin.SuperAdminPhone = "9060328119"
	}
	if len(c.Admin.SuperAdminEmails) == 0 {
		c.Admin.SuperAdminEmails = []string{
			"admin@easymed.in",
			"admin@gmail.com",
			"superadmin@easymed.in",
			"praveen@stellaronehealth.com",
		}
	}
	if len(c.Admin.AdminPasswords) == 0 {
		c.Admin.AdminPasswords = []string{
			"admin123",
			"easymed2025",
			"admin@123",
			"dummy123",
		}
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.SessionExpiryMinutes <= 0 {
		c.JWT.SessionExpiryMinutes = 12 * 60
	}

	// Email validation
	if c.Email.Enabled {
		if c.Email.APIKey == "" {
			return fmt.Errorf("SendGrid API key is required when email is enabled")
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Scheduler defaults
	if c.Scheduler.RosterBackup == "" {
		c.Scheduler.RosterBackup = "0 0 2 * * *" // 2 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Store.Database.User,
		c.Store.Database.Password,
		c.Store.Database.Host,
		c.Store.Database.Port,
		c.Store.Database.Database,
		c.Store.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
