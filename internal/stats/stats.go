// Package stats defines the admission tally kept alongside each limiter.
// Tallies are bookkeeping only; they never influence admission.
package stats

import (
	"context"
	"time"
)

// Event is one admission decision.
type Event struct {
	LimiterKey string
	Identifier string
	Allowed    bool
	At         time.Time
}

// Totals counts decisions for one identifier.
type Totals struct {
	Allowed  int64 `json:"allowed"`
	Rejected int64 `json:"rejected"`
}

// Recorder stores admission decisions.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
	Totals(ctx context.Context, identifier string) (Totals, error)
}

const (
	FieldAllowed  = "allowed"
	FieldRejected = "rejected"
)

// Field returns the counter name an event increments.
func (ev Event) Field() string {
	if ev.Allowed {
		return FieldAllowed
	}
	return FieldRejected
}
