package schedule

import "time"

// Urgency classifies a track's due date relative to a reference time.
type Urgency string

const (
	UrgencyCurrent Urgency = "current"
	UrgencyDueSoon Urgency = "due_soon"
	UrgencyOverdue Urgency = "overdue"
)

// DefaultDueSoonWindowDays is the lookahead window used when no window is
// configured.
const DefaultDueSoonWindowDays = 30

// Result is the outcome of a schedule computation for one track.
type Result struct {
	NextDue time.Time
	Urgency Urgency
}

// Compute derives the next due date and urgency for a track from its last
// event date and frequency. The due-soon window is inclusive on both ends:
// a track due exactly now and a track due exactly windowDays out are both
// due soon. Deterministic given its inputs; now is always injected.
func Compute(lastEvent time.Time, frequencyDays, windowDays int, now time.Time) Result {
	if windowDays <= 0 {
		windowDays = DefaultDueSoonWindowDays
	}

	nextDue := lastEvent.AddDate(0, 0, frequencyDays)

	var u Urgency
	switch {
	case nextDue.Before(now):
		u = UrgencyOverdue
	case !nextDue.After(now.AddDate(0, 0, windowDays)):
		u = UrgencyDueSoon
	default:
		u = UrgencyCurrent
	}

	return Result{NextDue: nextDue, Urgency: u}
}
