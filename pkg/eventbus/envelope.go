package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subject segments for graph lifecycle events.
const (
	// SubjectPrefix is the canonical prefix for lifecycle events.
	SubjectPrefix = "mindmesh.v1"

	EventConceptCreated       = "concept.created"
	EventConceptMergeFlagged  = "concept.merge_flagged"
	EventConceptSplitFlagged  = "concept.split_flagged"
	EventConceptDied          = "concept.died"
	EventMaintenanceCompleted = "maintenance.completed"
)

// Subject returns the canonical subject for an event type.
func Subject(eventType string) string {
	if eventType == "" {
		eventType = "unknown"
	}
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

// ConceptWildcard matches every concept lifecycle subject.
func ConceptWildcard() string {
	return fmt.Sprintf("%s.concept.>", SubjectPrefix)
}

// Envelope is the canonical lifecycle event envelope.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	ConceptID uint64          `json:"concept_id,omitempty"`
	Term      string          `json:"term,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// BuildEnvelope creates an envelope with generated event identity.
func BuildEnvelope(eventType string, conceptID uint64, term string, payload any) (Envelope, error) {
	if eventType == "" {
		return Envelope{}, fmt.Errorf("eventbus: event type is required")
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("eventbus: marshal payload: %w", err)
		}
		raw = data
	}

	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		ConceptID: conceptID,
		Term:      term,
		Payload:   raw,
	}, nil
}

// Encode marshals the envelope for publishing.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("eventbus: marshal envelope: %w", err)
	}
	return data, nil
}
