package workflow

import "fmt"

// Status represents a claim workflow state. The numeric value is the code
// persisted in the claims table and exchanged with clients.
type Status int

const (
	StatusReturned      Status = 1
	StatusRegister      Status = 2
	StatusWaitCheck     Status = 3
	StatusWaitConfirm   Status = 4
	StatusWaitFinancial Status = 5
	StatusArchived      Status = 6
	StatusWaitRecheck   Status = 8
)

// allStatuses lists every status in code order
var allStatuses = []Status{
	StatusReturned,
	StatusRegister,
	StatusWaitCheck,
	StatusWaitConfirm,
	StatusWaitFinancial,
	StatusArchived,
	StatusWaitRecheck,
}

var statusNames = map[Status]string{
	StatusReturned:      "Returned",
	StatusRegister:      "Register",
	StatusWaitCheck:     "WaitCheck",
	StatusWaitConfirm:   "WaitConfirm",
	StatusWaitFinancial: "WaitFinancial",
	StatusArchived:      "Archived",
	StatusWaitRecheck:   "WaitRecheck",
}

var statusLabels = map[Status]string{
	StatusReturned:      "Returned to originator",
	StatusRegister:      "Registered",
	StatusWaitCheck:     "Awaiting check",
	StatusWaitConfirm:   "Awaiting confirmation",
	StatusWaitFinancial: "Awaiting financial settlement",
	StatusArchived:      "Archived",
	StatusWaitRecheck:   "Awaiting recheck",
}

// StatusOption is the client-facing projection of a status
type StatusOption struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// ParseStatus resolves a numeric code to a Status
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatusCode, code)
	}
	return s, nil
}

// AllStatuses returns every status in code order
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsValid returns true if the status is one of the enumerated values
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// Code returns the numeric code of the status
func (s Status) Code() int {
	return int(s)
}

// String returns the status name
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Label returns the human readable label
func (s Status) Label() string {
	return statusLabels[s]
}

// Option projects the status for clients
func (s Status) Option() StatusOption {
	return StatusOption{Code: s.Code(), Label: s.Label()}
}

// Options projects a list of statuses, preserving order
func Options(statuses []Status) []StatusOption {
	opts := make([]StatusOption, 0, len(statuses))
	for _, s := range statuses {
		opts = append(opts, s.Option())
	}
	return opts
}
