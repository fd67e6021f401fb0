package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
	"git.home.luguber.info/inful/docrestyle/internal/retry"
)

// ValidateConfig validates a defaulted configuration.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateRestyle(); err != nil {
		return err
	}
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateDaemon(); err != nil {
		return err
	}
	return cv.validateEvents()
}

func (cv *configurationValidator) validateRestyle() error {
	for _, class := range cv.config.Restyle.Tables.Classes {
		if strings.TrimSpace(class) == "" || strings.ContainsAny(class, " \t\n") {
			return errors.ConfigError("table classes must be single non-empty tokens").
				WithContext("class", class).Build()
		}
	}
	if _, err := restyle.New(cv.config.RestyleOptions()); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid restyle settings").Fatal().Build()
	}
	return nil
}

func (cv *configurationValidator) validateSite() error {
	site := cv.config.Site
	if site.Workers < 1 {
		return errors.ConfigError("site.workers must be at least 1").Build()
	}
	for _, ext := range site.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.ConfigError("site.extensions entries must start with a dot").
				WithContext("extension", ext).Build()
		}
	}
	for _, pattern := range site.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid exclude pattern").
				WithContext("pattern", pattern).Fatal().Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	d := cv.config.Daemon
	if _, err := time.ParseDuration(d.Debounce); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid daemon.debounce").Fatal().Build()
	}
	if d.SweepInterval != "" {
		interval, err := time.ParseDuration(d.SweepInterval)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid daemon.sweep_interval").Fatal().Build()
		}
		if interval < time.Second {
			return errors.ConfigError("daemon.sweep_interval must be at least 1s").Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateEvents() error {
	ev := cv.config.Events
	if ev.Enabled && ev.NATSURL == "" {
		return errors.ConfigError("events.nats_url is required when events are enabled").Build()
	}
	if ev.Enabled && ev.Subject == "" {
		return errors.ConfigError("events.subject must not be empty").Build()
	}
	if !retry.ValidMode(retry.BackoffMode(ev.Retry.Backoff)) {
		return errors.ConfigError("events.retry.backoff must be fixed, linear or exponential").
			WithContext("backoff", ev.Retry.Backoff).Build()
	}
	for key, raw := range map[string]string{"events.retry.initial": ev.Retry.Initial, "events.retry.max": ev.Retry.Max} {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return errors.ConfigError("invalid retry delay").WithContext("key", key).WithContext("value", raw).Build()
		}
	}
	if ev.Retry.MaxRetries != nil && *ev.Retry.MaxRetries < 0 {
		return errors.ConfigError("events.retry.max_retries cannot be negative").Build()
	}
	return nil
}
