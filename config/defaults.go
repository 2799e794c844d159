package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "mindmesh",
			Environment: "development",
			Debug:       false,
		},
		Engine: EngineConfig{
			Workers:         4,
			MailboxCapacity: 64,
			InitialCapacity: 1024,
		},
		Concept: ConceptConfig{
			PropagationThreshold: 0.3,
			MinActivation:        0.1,
			DecayRate:            0.95,
			EnergyDecayRate:      0.99,
			RecentWindow:         time.Hour,
			StaleWindow:          24 * time.Hour,
		},
		Maintenance: MaintenanceConfig{
			Interval:   time.Minute,
			LearnEvery: 5,
		},
		Ingestion: IngestionConfig{
			WindowSize:     4,
			MinTokenLength: 3,
			RateLimit:      0,
		},
		Server: ServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9091,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "otlp",
			Endpoint:    "localhost:4317",
			Timeout:     10 * time.Second,
			SampleRatio: 1.0,
		},
		Events: EventsConfig{
			Enabled:          true,
			SubscriberBuffer: 64,
		},
	}
}
