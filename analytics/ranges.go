package analytics

import (
	"fmt"
	"time"
)

// Range labels accepted by the dashboard endpoints.
const (
	Range7d  = "7d"
	Range30d = "30d"
	RangeAll = "all"
)

// Window is a closed [From, To] interval; To is the query instant, so an
// event stamped exactly at query time falls inside its own window. A zero
// From means unbounded (all-time). Day boundaries use the server's local
// zone, matching how view days are bucketed.
type Window struct {
	Label string
	From  time.Time
	To    time.Time
}

// ResolveRange translates a symbolic range label into concrete bounds ending
// at now. "7d" covers today plus the six preceding calendar days, starting at
// local midnight; "30d" covers thirty calendar days the same way.
func ResolveRange(label string, now time.Time) (Window, error) {
	switch label {
	case Range7d:
		return Window{Label: label, From: startOfDay(now.AddDate(0, 0, -6)), To: now}, nil
	case Range30d:
		return Window{Label: label, From: startOfDay(now.AddDate(0, 0, -29)), To: now}, nil
	case RangeAll:
		return Window{Label: label, To: now}, nil
	}
	return Window{}, fmt.Errorf("%w: %q", ErrInvalidRange, label)
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
