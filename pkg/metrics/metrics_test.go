package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Enabled(t *testing.T) {
	m := NewManager(DefaultConfig())
	require.True(t, m.Enabled())

	// Exercise every recorder; none may panic.
	m.RecordMessage("activate", 3*time.Millisecond)
	m.RecordHandlerError("activate")
	m.SetLiveActors(7)
	m.SetQueuedMessages(3)
	m.IncPoisoned()
	m.SetConcepts(7)
	m.IncActivations()
	m.IncPropagations()
	m.IncRelations()
	m.IncLifecycleFlag("merge")
	m.IncRetired()
	m.RecordDocument(120, 40*time.Millisecond)
	m.RecordHTTPRequest("GET", "/healthz", "OK", time.Millisecond)
}

func TestNewManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := NewManager(cfg)
	require.False(t, m.Enabled())

	// All recorders must be safe no-ops.
	m.RecordMessage("activate", time.Millisecond)
	m.SetConcepts(1)
	m.RecordDocument(1, time.Millisecond)
	m.RecordHTTPRequest("GET", "/", "OK", time.Millisecond)
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()
	assert.False(t, m.Enabled())
	m.IncActivations()
}

func TestManager_Handler(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.RecordMessage("activate", time.Millisecond)
	m.SetConcepts(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "engine_messages_total")
	assert.Contains(t, body, "graph_concepts")
}

func TestManager_HandlerDisabled(t *testing.T) {
	m := NoOpManager()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
