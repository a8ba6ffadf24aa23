package workflow

import (
	"fmt"
)

// StateMachineBuilder builds a transition table and the machine that reads it
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state Status) StateConfiguration

	// Build freezes the configured table into a state machine
	Build() StateMachine
}

// StateConfiguration configures the outgoing edges of one state
type StateConfiguration interface {
	// Permit allows a move to the target state. Edges keep their declaration order.
	Permit(toState Status) StateConfiguration
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState Status
	targets   []Status
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[Status]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state Status) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{fromState: state}
		b.configurations[state] = config
	}

	return config
}

// Build creates an immutable state machine from the configured table
func (b *stateMachineBuilder) Build() StateMachine {
	// Copy so later Configure calls on the builder cannot leak into built machines
	table := make(map[Status][]Status, len(b.configurations))
	for state, config := range b.configurations {
		table[state] = append([]Status(nil), config.targets...)
	}

	return &stateMachine{table: table}
}

// Permit allows a move to the target state
func (c *stateConfig) Permit(toState Status) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	for _, existing := range c.targets {
		if existing == toState {
			return c
		}
	}
	c.targets = append(c.targets, toState)

	return c
}
