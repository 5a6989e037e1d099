package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// envAliases lists the legacy variable names accepted next to the BOT_-prefixed ones.
var envAliases = map[string][]string{
	"telegram.token": {"BOT_TELEGRAM_TOKEN", "TELEGRAM_CRITIC_API", "TELEGRAM_BOT_TOKEN"},
	"api.url":        {"BOT_API_URL", "API_URL"},
	"api.username":   {"BOT_API_USERNAME", "API_USERNAME"},
	"api.password":   {"BOT_API_PASSWORD", "API_PASSWORD"},
}

// LoadConfig loads and validates configuration from, in increasing priority:
//  1. built-in defaults
//  2. the YAML file at configPath (optional)
//  3. a .env file in the working directory (optional)
//  4. environment variables (BOT_* and the legacy names in envAliases)
func LoadConfig(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", configPath)
		} else {
			slog.Debug("Configuration file loaded", "path", v.ConfigFileUsed())
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil {
		slog.Debug("Loaded environment file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults registers every default with viper so environment overrides
// apply to keys that never appear in the config file.
func setDefaults(v *viper.Viper) {
	d := defaultConfig()

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.json", d.Logger.JSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.max_message_length", d.Telegram.MaxMessageLength)
	v.SetDefault("telegram.parse_mode", d.Telegram.ParseMode)

	v.SetDefault("api.url", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.circuit_breaker.max_failures", d.API.CircuitBreaker.MaxFailures)
	v.SetDefault("api.circuit_breaker.open_timeout", d.API.CircuitBreaker.OpenTimeout)

	v.SetDefault("relay.default_service", d.Relay.DefaultService)
	v.SetDefault("relay.fixed_service", "")
	services := make([]map[string]any, 0, len(d.Relay.Services))
	for _, s := range d.Relay.Services {
		services = append(services, map[string]any{
			"tag":          s.Tag,
			"description":  s.Description,
			"confirmation": s.Confirmation,
		})
	}
	v.SetDefault("relay.services", services)

	v.SetDefault("preferences.backend", d.Preferences.Backend)
	v.SetDefault("preferences.path", d.Preferences.Path)
	v.SetDefault("database.path", d.Database.Path)

	for name, task := range d.Scheduler.Tasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("metrics.listen_addr", "")

	m := d.Messages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.help", m.Help)
	v.SetDefault("messages.processing", m.Processing)
	v.SetDefault("messages.connection_failed", m.ConnectionFailed)
	v.SetDefault("messages.timeout", m.Timeout)
	v.SetDefault("messages.api_error", m.APIError)
	v.SetDefault("messages.unknown_error", m.UnknownError)
	v.SetDefault("messages.preference_error", m.PreferenceError)
	v.SetDefault("messages.empty_response", m.EmptyResponse)
	v.SetDefault("messages.unexpected_shape", m.UnexpectedShape)
	v.SetDefault("messages.review_label", m.ReviewLabel)
	v.SetDefault("messages.correction_label", m.CorrectionLabel)
	v.SetDefault("messages.single_variant_label", m.SingleVariantLabel)
	v.SetDefault("messages.multiple_variants_label", m.MultipleVariantsLabel)
}
