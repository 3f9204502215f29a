package validate

import (
	"errors"
	"fmt"
	"time"

	"labops-backend/internal/model"
)

// ErrInvalidInterval is returned when a candidate interval has start >= end.
var ErrInvalidInterval = errors.New("usage interval start must be before end")

// OverlapError reports a collision between a candidate usage interval and an
// already stored log. The caller must pick a non-conflicting window; the
// candidate is never truncated or coalesced.
type OverlapError struct {
	ConflictingLogID int64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("usage interval overlaps existing log %d", e.ConflictingLogID)
}

// UsageInterval checks a candidate [start, end) interval against the existing
// usage logs for the same equipment. Intervals are half-open, so a log ending
// exactly when the candidate starts does not conflict. Pure: never mutates
// its inputs; atomicity between validation and append is the caller's job.
func UsageInterval(start, end time.Time, existing []model.UsageLog) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}

	for _, l := range existing {
		if start.Before(l.EndTime) && l.StartTime.Before(end) {
			return &OverlapError{ConflictingLogID: l.ID}
		}
	}
	return nil
}
