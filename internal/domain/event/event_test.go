package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"claim created", TypeClaimCreated, true},
		{"claim transitioned", TypeClaimTransitioned, true},
		{"note added", TypeClaimNoteAdded, true},
		{"attachment added", TypeClaimAttachmentAdded, true},
		{"unknown", Type("claim.deleted"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evt := NewEvent(TypeClaimTransitioned, 42, 7, at, map[string]interface{}{
		KeyFromStatus: "WaitCheck",
		KeyToStatus:   "WaitConfirm",
	})

	if _, err := uuid.Parse(evt.ID); err != nil {
		t.Errorf("event ID %q should be a UUID: %v", evt.ID, err)
	}
	if evt.ClaimID != 42 || evt.ActorID != 7 {
		t.Errorf("unexpected ids: claim=%d actor=%d", evt.ClaimID, evt.ActorID)
	}
	if !evt.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", evt.Timestamp, at)
	}
	if got := evt.GetPayloadString(KeyToStatus); got != "WaitConfirm" {
		t.Errorf("GetPayloadString() = %q, want WaitConfirm", got)
	}

	other := NewEvent(TypeClaimTransitioned, 42, 7, at, nil)
	if other.ID == evt.ID {
		t.Error("event IDs should be unique")
	}
	if other.Payload == nil {
		t.Error("nil payload should be replaced with an empty map")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeClaimCreated, 1, 0, time.Now(), map[string]interface{}{KeyClaimNumber: "CLM-20240101-00001"})
	updated := original.WithPayload(KeyDeduction, int64(150000))

	if _, ok := original.Payload[KeyDeduction]; ok {
		t.Error("WithPayload() must not mutate the original event")
	}
	if got := updated.GetPayloadInt(KeyDeduction); got != 150000 {
		t.Errorf("GetPayloadInt() = %d, want 150000", got)
	}
	if updated.GetPayloadString(KeyClaimNumber) != "CLM-20240101-00001" {
		t.Error("WithPayload() should keep existing keys")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_GetPayloadInt_Types(t *testing.T) {
	evt := NewEvent(TypeClaimCreated, 1, 0, time.Now(), map[string]interface{}{
		"a": 3,
		"b": int64(4),
		"c": float64(5),
		"d": "6",
	})

	if evt.GetPayloadInt("a") != 3 || evt.GetPayloadInt("b") != 4 || evt.GetPayloadInt("c") != 5 {
		t.Error("GetPayloadInt() should convert numeric types")
	}
	if evt.GetPayloadInt("d") != 0 || evt.GetPayloadInt("missing") != 0 {
		t.Error("GetPayloadInt() should return 0 for non-numeric or missing keys")
	}
}
