package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.App.Name != "mindmesh" {
		t.Errorf("expected app name 'mindmesh', got %s", cfg.App.Name)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.MailboxCapacity != 64 {
		t.Errorf("expected mailbox capacity 64, got %d", cfg.Engine.MailboxCapacity)
	}
	if cfg.Maintenance.Interval != time.Minute {
		t.Errorf("expected maintenance interval 1m, got %v", cfg.Maintenance.Interval)
	}
	if cfg.Concept.DecayRate != 0.95 {
		t.Errorf("expected decay rate 0.95, got %f", cfg.Concept.DecayRate)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := ValidateWithDetails(DefaultConfig()); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "mindmesh" {
		t.Errorf("expected default app name, got %s", cfg.App.Name)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("expected default workers, got %d", cfg.Engine.Workers)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
app:
  name: graphtest
  environment: production
engine:
  workers: 8
  mailbox_capacity: 128
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "graphtest" {
		t.Errorf("expected app name graphtest, got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("expected production environment, got %s", cfg.App.Environment)
	}
	if cfg.Engine.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.MailboxCapacity != 128 {
		t.Errorf("expected mailbox capacity 128, got %d", cfg.Engine.MailboxCapacity)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.Log.Level)
	}
	// Untouched sections keep defaults.
	if cfg.Maintenance.LearnEvery != 5 {
		t.Errorf("expected default learn cadence, got %d", cfg.Maintenance.LearnEvery)
	}
}

func TestLoad_FromJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	content := `{"app": {"name": "jsontest"}, "server": {"port": 9000}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "jsontest" {
		t.Errorf("expected app name jsontest, got %s", cfg.App.Name)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected error for unsupported config format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINDMESH_APP_NAME", "env-test")
	t.Setenv("MINDMESH_LOG_LEVEL", "error")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "env-test" {
		t.Errorf("expected env override app name, got %s", cfg.App.Name)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected env override log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_CLIOverridesWin(t *testing.T) {
	t.Setenv("MINDMESH_APP_NAME", "env-test")

	cfg, err := Load("", map[string]interface{}{
		"app.name":       "cli-test",
		"engine.workers": 2,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "cli-test" {
		t.Errorf("expected cli override to win, got %s", cfg.App.Name)
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Engine.Workers)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{"zero workers", map[string]interface{}{"engine.workers": 0}},
		{"bad environment", map[string]interface{}{"app.environment": "invalid"}},
		{"bad log level", map[string]interface{}{"log.level": "loud"}},
		{"port out of range", map[string]interface{}{"server.port": 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", tt.overrides); err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	if s == "" {
		t.Fatal("expected non-empty config summary")
	}
}
