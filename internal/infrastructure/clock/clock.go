package clock

import (
	"time"

	"github.com/garyjia/tpa-claims/internal/application/port"
)

// SystemClock reports wall-clock time in a fixed location so claim numbers
// use the back office's calendar date
type SystemClock struct {
	loc *time.Location
}

// New creates a clock for the given location. A nil location means UTC.
func New(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

// Load creates a clock for an IANA zone name such as "Asia/Tehran"
func Load(name string) (*SystemClock, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return New(loc), nil
}

// Now returns the current time in the clock's location
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the configured location
func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// Verify interface compliance
var _ port.Clock = (*SystemClock)(nil)
