// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	FCM      FCMConfig      `mapstructure:"fcm"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TokenTTL int    `mapstructure:"token_ttl"` // seconds, device-token cache TTL
}

// FCMConfig holds the service-account credential and provider endpoints.
// The credential values are secrets and arrive via environment variables
// (FCM_CLIENT_EMAIL, FCM_PRIVATE_KEY, FCM_PROJECT_ID); the endpoints have
// defaults and exist as config only so tests can point at a local server.
type FCMConfig struct {
	ClientEmail   string `mapstructure:"client_email"`
	PrivateKey    string `mapstructure:"private_key"`
	ProjectID     string `mapstructure:"project_id"`
	TokenEndpoint string `mapstructure:"token_endpoint"`
	SendEndpoint  string `mapstructure:"send_endpoint"` // base, per-project path appended
	Timeout       int    `mapstructure:"timeout"`       // milliseconds, per HTTP call
}

// ReminderConfig controls the scan window geometry.
type ReminderConfig struct {
	LeadTime  int `mapstructure:"lead_time"`  // minutes before start_time, default 240
	Tolerance int `mapstructure:"tolerance"`  // minutes either side of target, default 10
	Timeout   int `mapstructure:"timeout"`    // milliseconds, whole-scan budget
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
