// Package config provides configuration loading, validation, and management
// for the text relay bot. Values come from an optional YAML file, a .env file,
// and environment variables, layered over built-in defaults.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration parameters for all components.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	API         APIConfig         `mapstructure:"api"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Messages    MessagesConfig    `mapstructure:"messages"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credential and outbound message settings.
type TelegramConfig struct {
	Token            string `mapstructure:"token"              validate:"required"`
	MaxMessageLength int    `mapstructure:"max_message_length" validate:"min=16,max=4096"`
	ParseMode        string `mapstructure:"parse_mode"         validate:"omitempty,oneof=Markdown MarkdownV2 HTML"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// APIConfig describes the upstream text-generation endpoint.
type APIConfig struct {
	URL      string        `mapstructure:"url"      validate:"required,url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password" validate:"required_with=Username"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s,max=10m"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig makes the client fail fast after repeated transport
// failures. MaxFailures of zero disables the breaker.
type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"min=0"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"required_with=MaxFailures"`
}

// RelayConfig selects how the service tag is resolved for each message.
// When FixedService is set, per-user preferences and service commands are disabled.
type RelayConfig struct {
	DefaultService string          `mapstructure:"default_service" validate:"required"`
	FixedService   string          `mapstructure:"fixed_service"`
	Services       []ServiceConfig `mapstructure:"services"        validate:"required,min=1,dive"`
}

// ServiceConfig describes one selectable service tag and its bot command.
type ServiceConfig struct {
	Tag          string `mapstructure:"tag"          validate:"required"`
	Description  string `mapstructure:"description"  validate:"required"`
	Confirmation string `mapstructure:"confirmation" validate:"required"`
}

// PreferencesConfig selects the backing storage for per-user service preferences.
type PreferencesConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file sqlite"`
	Path    string `mapstructure:"path"    validate:"required_if=Backend file"`
}

// DatabaseConfig configures the SQLite database used by the sqlite preference backend.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig defines a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}

// MessagesConfig holds every user-facing string.
type MessagesConfig struct {
	Welcome    string `mapstructure:"welcome"    validate:"required"`
	Help       string `mapstructure:"help"       validate:"required"`
	Processing string `mapstructure:"processing"`

	ConnectionFailed string `mapstructure:"connection_failed" validate:"required"`
	Timeout          string `mapstructure:"timeout"           validate:"required"`
	APIError         string `mapstructure:"api_error"         validate:"required"`
	UnknownError     string `mapstructure:"unknown_error"     validate:"required"`
	PreferenceError  string `mapstructure:"preference_error"  validate:"required"`

	EmptyResponse   string `mapstructure:"empty_response"   validate:"required"`
	UnexpectedShape string `mapstructure:"unexpected_shape" validate:"required"`

	ReviewLabel           string `mapstructure:"review_label"            validate:"required"`
	CorrectionLabel       string `mapstructure:"correction_label"        validate:"required"`
	SingleVariantLabel    string `mapstructure:"single_variant_label"    validate:"required"`
	MultipleVariantsLabel string `mapstructure:"multiple_variants_label" validate:"required"`
}

// ServiceTags returns the configured tags in declaration order.
func (c *Config) ServiceTags() []string {
	tags := make([]string, 0, len(c.Relay.Services))
	for _, s := range c.Relay.Services {
		tags = append(tags, s.Tag)
	}
	return tags
}
