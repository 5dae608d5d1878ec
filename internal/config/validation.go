package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateSource()...)

	if len(c.Checks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "checks",
			Message: "at least one check must be defined",
		})
	}
	for _, name := range c.ListChecks() {
		check := c.Checks[name]
		errors = append(errors, c.validateCheck(name, &check)...)
	}

	errors = append(errors, c.validateNotifier()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors

	if c.Source.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "source.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	switch c.Source.Type {
	case SourceFeatureService:
		if c.Source.FeatureService.PageSize <= 0 {
			errors = append(errors, ValidationError{
				Field:   "source.feature_service.page_size",
				Message: "page_size must be positive",
			})
		}
	case SourceSQL:
		errors = append(errors, c.validateDatabase("source.database", &c.Source.Database)...)
	default:
		errors = append(errors, ValidationError{
			Field:   "source.type",
			Message: "type must be 'featureservice' or 'sql'",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	switch db.Driver {
	case "sqlite":
		if db.Path == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".path",
				Message: "path is required for the sqlite driver",
			})
		}
		return errors
	case "mysql", "pgx":
	default:
		errors = append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'mysql', 'pgx', or 'sqlite'",
		})
		return errors
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateCheck(name string, check *CheckConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("checks.%s", name)

	errors = append(errors, c.validateLayer(prefix+".parent.layer", check.Parent.Layer)...)
	errors = append(errors, c.validateLayer(prefix+".child.layer", check.Child.Layer)...)

	if check.Parent.IDField == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".parent.id_field",
			Message: "id_field is required",
		})
	}

	fields := map[string]string{
		"object_id_field": check.Child.ObjectIDField,
		"parent_field":    check.Child.ParentField,
		"date_field":      check.Child.DateField,
		"creator_field":   check.Child.CreatorField,
		"company_field":   check.Child.CompanyField,
	}
	for _, key := range []string{"object_id_field", "parent_field", "date_field", "creator_field", "company_field"} {
		if fields[key] == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".child." + key,
				Message: key + " is required",
			})
		}
	}

	if _, err := check.Report.Location(); err != nil {
		errors = append(errors, ValidationError{
			Field:   prefix + ".report.timezone",
			Message: fmt.Sprintf("unknown time zone %q", check.Report.Timezone),
		})
	}

	errors = append(errors, validateRoute(prefix+".notification.found", check.Notification.Found)...)
	errors = append(errors, validateRoute(prefix+".notification.clear", check.Notification.Clear)...)

	return errors
}

// validateLayer checks a layer reference against the configured source type.
func (c *Config) validateLayer(field, layer string) ValidationErrors {
	if layer == "" {
		return ValidationErrors{{Field: field, Message: "layer is required"}}
	}
	if c.Source.Type != SourceFeatureService {
		return nil
	}
	u, err := url.Parse(layer)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationErrors{{Field: field, Message: "layer must be an http(s) feature layer URL"}}
	}
	return nil
}

func validateRoute(prefix string, route RouteConfig) ValidationErrors {
	var errors ValidationErrors

	if len(route.To) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".to",
			Message: "at least one recipient is required",
		})
	}
	for i, addr := range append(append([]string{}, route.To...), route.CC...) {
		if _, err := mail.ParseAddress(addr); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.recipients[%d]", prefix, i),
				Message: fmt.Sprintf("invalid address %q", addr),
			})
		}
	}

	return errors
}

func (c *Config) validateNotifier() ValidationErrors {
	var errors ValidationErrors

	if c.Notifier.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "notifier.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	switch c.Notifier.Type {
	case NotifierCommand:
		if c.Notifier.Command.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "notifier.command.path",
				Message: "path is required for the command notifier",
			})
		}
	case NotifierSMTP:
		if c.Notifier.SMTP.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "notifier.smtp.host",
				Message: "host is required for the smtp notifier",
			})
		}
		if c.Notifier.SMTP.Port <= 0 || c.Notifier.SMTP.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "notifier.smtp.port",
				Message: "port must be between 1 and 65535",
			})
		}
		if _, err := mail.ParseAddress(c.Notifier.SMTP.From); err != nil {
			errors = append(errors, ValidationError{
				Field:   "notifier.smtp.from",
				Message: "from must be a valid address",
			})
		}
	case NotifierLog:
	default:
		errors = append(errors, ValidationError{
			Field:   "notifier.type",
			Message: "type must be 'command', 'smtp', or 'log'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
