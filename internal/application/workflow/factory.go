package workflow

import (
	domainwf "github.com/garyjia/tpa-claims/internal/domain/workflow"
)

// NewClaimStateMachine creates the state machine for the claim approval workflow
func NewClaimStateMachine() domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// Register: newly created, waiting for the clerical check queue
	builder.Configure(domainwf.StatusRegister).
		Permit(domainwf.StatusWaitCheck)

	builder.Configure(domainwf.StatusWaitCheck).
		Permit(domainwf.StatusWaitConfirm).
		Permit(domainwf.StatusWaitRecheck).
		Permit(domainwf.StatusReturned)

	builder.Configure(domainwf.StatusWaitConfirm).
		Permit(domainwf.StatusWaitFinancial).
		Permit(domainwf.StatusReturned)

	builder.Configure(domainwf.StatusWaitFinancial).
		Permit(domainwf.StatusArchived)

	builder.Configure(domainwf.StatusWaitRecheck).
		Permit(domainwf.StatusWaitCheck)

	// Returned claims re-enter the flow by being registered again
	builder.Configure(domainwf.StatusReturned).
		Permit(domainwf.StatusRegister)

	// Archived is terminal - no outgoing transitions

	return builder.Build()
}
