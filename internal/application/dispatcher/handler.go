package dispatcher

import (
	"context"

	"github.com/garyjia/tpa-claims/internal/domain/event"
)

// Handler reacts to a committed claim change
type Handler func(ctx context.Context, evt *event.Event) error

type subscription struct {
	name    string
	handler Handler
}

// claimEventTypes are the types SubscribeAll registers for
var claimEventTypes = []event.Type{
	event.TypeClaimCreated,
	event.TypeClaimTransitioned,
	event.TypeClaimNoteAdded,
	event.TypeClaimAttachmentAdded,
}
