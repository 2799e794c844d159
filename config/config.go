// Package config provides configuration management for MindMesh.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for MindMesh.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Engine is the actor runtime configuration.
	Engine EngineConfig `mapstructure:"engine" validate:"required"`

	// Concept holds the concept behavior tunables.
	Concept ConceptConfig `mapstructure:"concept"`

	// Maintenance is the periodic graph maintenance configuration.
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`

	// Ingestion is the document analysis configuration.
	Ingestion IngestionConfig `mapstructure:"ingestion"`

	// Server is the introspection HTTP server configuration.
	Server ServerConfig `mapstructure:"server"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`

	// Events is the lifecycle event bus configuration.
	Events EventsConfig `mapstructure:"events"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"env"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// EngineConfig holds the actor runtime settings.
type EngineConfig struct {
	// Workers is the worker pool size.
	Workers int `mapstructure:"workers" validate:"required,min=1,max=256"`

	// MailboxCapacity is the per-actor mailbox size.
	MailboxCapacity int `mapstructure:"mailbox_capacity" validate:"min=0"`

	// InitialCapacity sizes the concept registries.
	InitialCapacity int `mapstructure:"initial_capacity" validate:"min=0"`
}

// ConceptConfig holds concept behavior tunables. Zero values fall back to
// the built-in defaults.
type ConceptConfig struct {
	// PropagationThreshold is the activation above which activation spreads.
	PropagationThreshold float64 `mapstructure:"propagation_threshold" validate:"gte=0,lte=2"`

	// MinActivation is the propagation floor.
	MinActivation float64 `mapstructure:"min_activation" validate:"gte=0,lte=2"`

	// DecayRate is the multiplicative activation decay.
	DecayRate float64 `mapstructure:"decay_rate" validate:"gte=0,lte=1"`

	// EnergyDecayRate is the multiplicative energy decay.
	EnergyDecayRate float64 `mapstructure:"energy_decay_rate" validate:"gte=0,lte=1"`

	// RecentWindow reinforces relations used within this window.
	RecentWindow time.Duration `mapstructure:"recent_window"`

	// StaleWindow weakens relations idle beyond this window.
	StaleWindow time.Duration `mapstructure:"stale_window"`
}

// MaintenanceConfig holds the periodic maintenance settings.
type MaintenanceConfig struct {
	// Interval gates maintenance cycles.
	Interval time.Duration `mapstructure:"interval"`

	// LearnEvery runs learning and merge/split checks every Nth cycle.
	LearnEvery int `mapstructure:"learn_every" validate:"min=0"`
}

// IngestionConfig holds the document analysis settings.
type IngestionConfig struct {
	// WindowSize is the co-occurrence window within a sentence.
	WindowSize int `mapstructure:"window_size" validate:"min=0"`

	// MinTokenLength filters tokens shorter than this.
	MinTokenLength int `mapstructure:"min_token_length" validate:"min=0"`

	// RateLimit caps ingested tokens per second (0 = unlimited).
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
}

// ServerConfig holds the introspection HTTP server configuration.
type ServerConfig struct {
	// Enabled enables the introspection server.
	Enabled bool `mapstructure:"enabled"`

	// Host is the bind address.
	Host string `mapstructure:"host"`

	// Port is the HTTP port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json or text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the destination (stdout, stderr, or a file path).
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and the metrics endpoint.
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`
}

// TracingConfig holds the OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled enables trace export.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the exporter ("otlp").
	Exporter string `mapstructure:"exporter"`

	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds export calls.
	Timeout time.Duration `mapstructure:"timeout"`

	// SampleRatio is the trace sampling ratio in [0, 1].
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`

	// Headers are additional exporter headers.
	Headers map[string]string `mapstructure:"headers"`
}

// EventsConfig holds the lifecycle event bus configuration.
type EventsConfig struct {
	// Enabled attaches the event bus to the graph.
	Enabled bool `mapstructure:"enabled"`

	// SubscriberBuffer is the per-subscription channel buffer.
	SubscriberBuffer int `mapstructure:"subscriber_buffer" validate:"min=0"`
}

// String returns a compact single-line summary for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"app=%s env=%s workers=%d mailbox=%d server=%v:%d metrics=%v tracing=%v",
		c.App.Name, c.App.Environment,
		c.Engine.Workers, c.Engine.MailboxCapacity,
		c.Server.Enabled, c.Server.Port,
		c.Metrics.Enabled, c.Tracing.Enabled,
	)
}
