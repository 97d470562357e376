package conflict

import (
	"context"
	"fmt"
	"reservo/pkg/model"
	"sort"
	"time"
)

const reasonTimeLayout = "2006-01-02 15:04"

// Finder returns the pending and approved bookings of a resource whose
// interval overlaps [start, end), ordered by start time. excludeID, when
// set, is left out of the result.
type Finder interface {
	FindActiveOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]model.Booking, error)
}

type Result struct {
	HasConflict bool            `json:"has_conflict"`
	Capacity    int             `json:"capacity"`
	Overlapping int             `json:"overlapping"`
	First       *model.Booking  `json:"first_conflict,omitempty"`
	Conflicting []model.Booking `json:"conflicting_bookings,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// Detector is the authoritative conflict check. Callers that gate admission
// must run it while holding the resource lock.
type Detector interface {
	CheckConflicts(ctx context.Context, resourceID string, start, end time.Time, capacity int, excludeID string) (Result, error)
}

type detector struct {
	finder Finder
}

func NewDetector(finder Finder) Detector {
	return &detector{finder: finder}
}

func (d *detector) CheckConflicts(ctx context.Context, resourceID string, start, end time.Time, capacity int, excludeID string) (Result, error) {
	overlapping, err := d.finder.FindActiveOverlapping(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	return Evaluate(capacity, start, end, overlapping), nil
}

// Evaluate decides admission from the candidate bookings alone. Candidates
// that are inactive or do not overlap [start, end) are ignored, so the
// verdict does not depend on how the candidates were fetched.
func Evaluate(capacity int, start, end time.Time, candidates []model.Booking) Result {
	if capacity < 1 {
		capacity = 1
	}

	overlapping := make([]model.Booking, 0, len(candidates))
	for _, b := range candidates {
		if b.Status.IsActive() && model.Overlaps(b.StartTime, b.EndTime, start, end) {
			overlapping = append(overlapping, b)
		}
	}
	sort.SliceStable(overlapping, func(i, j int) bool {
		return overlapping[i].StartTime.Before(overlapping[j].StartTime)
	})

	n := len(overlapping)
	result := Result{Capacity: capacity, Overlapping: n}

	if capacity == 1 {
		if n == 0 {
			return result
		}
		first := overlapping[0]
		result.HasConflict = true
		result.First = &first
		result.Conflicting = overlapping
		result.Reason = fmt.Sprintf("Resource is already booked from %s to %s",
			first.StartTime.UTC().Format(reasonTimeLayout),
			first.EndTime.UTC().Format(reasonTimeLayout),
		)
		return result
	}

	if n >= capacity {
		first := overlapping[0]
		result.HasConflict = true
		result.First = &first
		result.Conflicting = overlapping
		result.Reason = fmt.Sprintf("Resource capacity of %d is fully booked for the requested time", capacity)
	}
	return result
}
