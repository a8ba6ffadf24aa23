package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidStatusCode is returned when a code does not name a status
	ErrInvalidStatusCode = errors.New("invalid status code")

	// ErrConcurrentModification is returned when the claim changed between read and write.
	// Callers should refetch the claim and retry.
	ErrConcurrentModification = errors.New("claim was modified concurrently")
)

// TransitionError describes a rejected transition together with the moves
// that would have been accepted from the same source state.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		names := make([]string, 0, len(e.Allowed))
		for _, s := range e.Allowed {
			names = append(names, s.String())
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s: cannot move claim from %s to %s (allowed: %s)",
		ErrInvalidTransition, e.From, e.To, allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
