package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ErrValidation marks configuration that failed validation.
var ErrValidation = errors.New("validation error")

// Telegram bot commands: 1-32 chars, lowercase letters, digits and underscores.
var commandPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	tags := c.ServiceTags()
	if dups := lo.FindDuplicates(tags); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate service tags %v", ErrValidation, dups)
	}
	for _, tag := range tags {
		if !commandPattern.MatchString(tag) {
			return fmt.Errorf("%w: service tag %q is not a valid bot command", ErrValidation, tag)
		}
		if tag == "start" || tag == "help" {
			return fmt.Errorf("%w: service tag %q clashes with a built-in command", ErrValidation, tag)
		}
	}

	if !lo.Contains(tags, c.Relay.DefaultService) {
		return fmt.Errorf("%w: default service %q is not in the service list", ErrValidation, c.Relay.DefaultService)
	}
	if c.Relay.FixedService != "" && !lo.Contains(tags, c.Relay.FixedService) {
		return fmt.Errorf("%w: fixed service %q is not in the service list", ErrValidation, c.Relay.FixedService)
	}

	if c.Preferences.Backend == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required for the sqlite preference backend", ErrValidation)
	}

	return nil
}
