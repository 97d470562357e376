package conflict

import (
	"strings"
	"time"
)

const (
	ConflictKeyPrefix     = "booking_conflicts"
	AvailabilityKeyPrefix = "resource_availability"

	minuteLayout = "200601021504"
	dayLayout    = "20060102"
)

// ConflictKey is minute granular: windows that differ only below a minute
// share an entry.
func ConflictKey(resourceID string, start, end time.Time) string {
	return buildKey(ConflictKeyPrefix, resourceID,
		NormalizeMinute(start).Format(minuteLayout),
		NormalizeMinute(end).Format(minuteLayout),
	)
}

func AvailabilityKey(resourceID string, fromDay, toDay time.Time) string {
	return buildKey(AvailabilityKeyPrefix, resourceID,
		StartOfDay(fromDay).Format(dayLayout),
		StartOfDay(toDay).Format(dayLayout),
	)
}

func buildKey(prefix, resourceID, from, to string) string {
	b := strings.Builder{}
	b.Grow(len(prefix) + len(resourceID) + len(from) + len(to) + 3)
	b.WriteString(prefix)
	b.WriteString(":")
	b.WriteString(resourceID)
	b.WriteString(":")
	b.WriteString(from)
	b.WriteString(":")
	b.WriteString(to)
	return b.String()
}

func NormalizeMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the Monday of t's ISO week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// BucketKeys lists the per-day and per-week availability keys whose buckets
// contain any instant of [start, end).
func BucketKeys(resourceID string, start, end time.Time) []string {
	if !end.After(start) {
		end = start.Add(time.Nanosecond)
	}
	first := StartOfDay(start)
	last := StartOfDay(end.Add(-time.Nanosecond))

	var keys []string
	seenWeeks := make(map[time.Time]bool)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		keys = append(keys, AvailabilityKey(resourceID, day, day))
		week := StartOfWeek(day)
		if !seenWeeks[week] {
			seenWeeks[week] = true
			keys = append(keys, AvailabilityKey(resourceID, week, week.AddDate(0, 0, 6)))
		}
	}
	return keys
}
