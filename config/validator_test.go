package config

import (
	"strings"
	"testing"
	"time"
)

type envTestStruct struct {
	Environment string `validate:"env"`
}

func TestValidateEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		expected bool
	}{
		{"development", "development", true},
		{"staging", "staging", true},
		{"production", "production", true},
		{"invalid", "prod", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(envTestStruct{Environment: tt.env})
			if tt.expected && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tt.expected && err == nil {
				t.Errorf("expected invalid for %q, got valid", tt.env)
			}
		})
	}
}

func TestValidateWithDetails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Workers = 0
	cfg.Log.Level = "loud"

	err := ValidateWithDetails(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) < 2 {
		t.Errorf("expected at least 2 errors, got %d", len(verrs))
	}

	msg := err.Error()
	if !strings.Contains(msg, "configuration validation failed") {
		t.Errorf("unexpected error message: %s", msg)
	}
	if !strings.Contains(msg, "Workers") {
		t.Errorf("expected Workers in message, got: %s", msg)
	}
}

func TestCrossFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			"recent window not shorter than stale",
			func(c *Config) {
				c.Concept.RecentWindow = 48 * time.Hour
				c.Concept.StaleWindow = 24 * time.Hour
			},
			"Config.Concept.RecentWindow",
		},
		{
			"propagation threshold below activation floor",
			func(c *Config) {
				c.Concept.PropagationThreshold = 0.05
				c.Concept.MinActivation = 0.1
			},
			"Config.Concept.PropagationThreshold",
		},
		{
			"negative maintenance interval",
			func(c *Config) { c.Maintenance.Interval = -time.Minute },
			"Config.Maintenance.Interval",
		},
		{
			"server enabled without port",
			func(c *Config) { c.Server.Port = 0 },
			"Config.Server.Port",
		},
		{
			"metrics enabled without port",
			func(c *Config) { c.Metrics.Port = 0 },
			"Config.Metrics.Port",
		},
		{
			"metrics enabled without path",
			func(c *Config) { c.Metrics.Path = "" },
			"Config.Metrics.Path",
		},
		{
			"server and metrics share a port",
			func(c *Config) { c.Metrics.Port = c.Server.Port },
			"Config.Metrics.Port",
		},
		{
			"tracing enabled without endpoint",
			func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Endpoint = "  "
			},
			"Config.Tracing.Endpoint",
		},
		{
			"tracing enabled without timeout",
			func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Timeout = 0
			},
			"Config.Tracing.Timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			errs := cfg.crossFieldErrors()
			if len(errs) == 0 {
				t.Fatal("expected a cross-field validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestCrossFieldErrors_DefaultsClean(t *testing.T) {
	if errs := DefaultConfig().crossFieldErrors(); len(errs) != 0 {
		t.Fatalf("default config must pass cross-field checks, got %v", errs)
	}

	// Zero values in the tunable sections mean "use defaults" and are
	// not flagged.
	cfg := DefaultConfig()
	cfg.Concept = ConceptConfig{}
	cfg.Maintenance = MaintenanceConfig{}
	if errs := cfg.crossFieldErrors(); len(errs) != 0 {
		t.Fatalf("zeroed tunables must pass cross-field checks, got %v", errs)
	}
}

func TestConfigError_Error(t *testing.T) {
	e := ConfigError{Field: "Engine.Workers", Message: "must be at least 1", Value: 0}
	if !strings.Contains(e.Error(), "Engine.Workers") {
		t.Errorf("unexpected error string: %s", e.Error())
	}
}
