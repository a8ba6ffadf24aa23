package workflow

// StateMachine is the single authority on which claim moves are legal.
// Both the write path and the "what can I do next" read path consult it.
type StateMachine interface {
	// CanTransition reports whether the edge from -> to exists
	CanTransition(from, to Status) bool

	// ValidateTransition returns a *TransitionError if the edge does not exist
	ValidateTransition(from, to Status) error

	// NextStatuses returns the targets reachable from current, in declared order
	NextStatuses(current Status) []Status
}

// stateMachine implements StateMachine over a frozen table
type stateMachine struct {
	table map[Status][]Status
}

// CanTransition reports whether the edge from -> to exists
func (m *stateMachine) CanTransition(from, to Status) bool {
	for _, target := range m.table[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError if the edge does not exist
func (m *stateMachine) ValidateTransition(from, to Status) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{
		From:    from,
		To:      to,
		Allowed: m.NextStatuses(from),
	}
}

// NextStatuses returns the targets reachable from current, in declared order
func (m *stateMachine) NextStatuses(current Status) []Status {
	return append([]Status{}, m.table[current]...)
}
