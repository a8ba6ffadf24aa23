package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimCreated         Type = "claim.created"
	TypeClaimTransitioned    Type = "claim.transitioned"
	TypeClaimNoteAdded       Type = "claim.note_added"
	TypeClaimAttachmentAdded Type = "claim.attachment_added"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimCreated,
		TypeClaimTransitioned,
		TypeClaimNoteAdded,
		TypeClaimAttachmentAdded:
		return true
	default:
		return false
	}
}
