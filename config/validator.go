package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("env", validateEnvironment)
	return v
}

// validEnvironments are the runtime environments the engine recognizes.
var validEnvironments = map[string]struct{}{
	"development": {},
	"staging":     {},
	"production":  {},
}

// validateEnvironment backs the "env" struct tag.
func validateEnvironment(fl validator.FieldLevel) bool {
	_, ok := validEnvironments[fl.Field().String()]
	return ok
}

// ConfigError represents a validation error for a specific field.
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of config errors.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// ValidateWithDetails runs struct-tag validation plus the cross-field rules
// the tags cannot express, and reports every violation at once.
func ValidateWithDetails(cfg *Config) error {
	var details ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range verrs {
			details = append(details, ConfigError{
				Field:   fe.Namespace(),
				Message: formatValidationError(fe),
				Value:   fe.Value(),
			})
		}
	}

	details = append(details, cfg.crossFieldErrors()...)

	if len(details) > 0 {
		return details
	}
	return nil
}

// crossFieldErrors checks the relationships between settings that struct
// tags cannot express. Zero values in the Concept and Maintenance sections
// mean "use the built-in default" and are skipped.
func (c *Config) crossFieldErrors() ValidationErrors {
	var errs ValidationErrors

	if c.Concept.RecentWindow > 0 && c.Concept.StaleWindow > 0 &&
		c.Concept.RecentWindow >= c.Concept.StaleWindow {
		errs = append(errs, ConfigError{
			Field:   "Config.Concept.RecentWindow",
			Message: "recent window must be shorter than the stale window",
			Value:   c.Concept.RecentWindow,
		})
	}
	if c.Concept.PropagationThreshold > 0 && c.Concept.MinActivation > 0 &&
		c.Concept.PropagationThreshold < c.Concept.MinActivation {
		errs = append(errs, ConfigError{
			Field:   "Config.Concept.PropagationThreshold",
			Message: "propagation threshold cannot be below the activation floor",
			Value:   c.Concept.PropagationThreshold,
		})
	}
	if c.Maintenance.Interval < 0 {
		errs = append(errs, ConfigError{
			Field:   "Config.Maintenance.Interval",
			Message: "maintenance interval cannot be negative",
			Value:   c.Maintenance.Interval,
		})
	}
	if c.Server.Enabled && c.Server.Port == 0 {
		errs = append(errs, ConfigError{
			Field:   "Config.Server.Port",
			Message: "introspection server is enabled but has no port",
			Value:   c.Server.Port,
		})
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port == 0 {
			errs = append(errs, ConfigError{
				Field:   "Config.Metrics.Port",
				Message: "metrics are enabled but have no port",
				Value:   c.Metrics.Port,
			})
		}
		if c.Metrics.Path == "" {
			errs = append(errs, ConfigError{
				Field:   "Config.Metrics.Path",
				Message: "metrics are enabled but have no endpoint path",
				Value:   c.Metrics.Path,
			})
		}
	}
	if c.Server.Enabled && c.Metrics.Enabled && c.Server.Port == c.Metrics.Port {
		errs = append(errs, ConfigError{
			Field:   "Config.Metrics.Port",
			Message: "introspection and metrics servers cannot share a port",
			Value:   c.Metrics.Port,
		})
	}
	if c.Tracing.Enabled {
		if strings.TrimSpace(c.Tracing.Endpoint) == "" {
			errs = append(errs, ConfigError{
				Field:   "Config.Tracing.Endpoint",
				Message: "tracing is enabled but has no endpoint",
				Value:   c.Tracing.Endpoint,
			})
		}
		if c.Tracing.Timeout <= 0 {
			errs = append(errs, ConfigError{
				Field:   "Config.Tracing.Timeout",
				Message: "tracing export timeout must be positive",
				Value:   c.Tracing.Timeout,
			})
		}
	}

	return errs
}

// formatValidationError converts a validator.FieldError into a
// human-readable message.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "env":
		return "must be one of development, staging, production"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
