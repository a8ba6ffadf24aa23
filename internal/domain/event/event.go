package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyFromStatus   = "from_status"
	KeyToStatus     = "to_status"
	KeyClaimNumber  = "claim_number"
	KeyNoteType     = "note_type"
	KeyMimeType     = "mime_type"
	KeyDeduction    = "deduction_amount"
	KeyApproved     = "approved_amount"
	KeyAttachmentID = "attachment_id"
)

// Event represents a domain event about a claim
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	ClaimID   int64                  `json:"claim_id"`
	ActorID   int64                  `json:"actor_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with a generated ID
func NewEvent(eventType Type, claimID, actorID int64, at time.Time, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ClaimID:   claimID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: at,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	return &Event{
		ID:        e.ID,
		Type:      e.Type,
		ClaimID:   e.ClaimID,
		ActorID:   e.ActorID,
		Payload:   newPayload,
		Timestamp: e.Timestamp,
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
