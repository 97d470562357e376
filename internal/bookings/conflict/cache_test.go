package conflict

import (
	"context"
	"reservo/pkg/cache"
	"reservo/pkg/model"
	"sort"
	"testing"
	"time"
)

func newTestCache(t *testing.T, finder Finder) (Cache, *cache.MemoryStore, *KeyIndex) {
	t.Helper()
	store, err := cache.NewMemoryStore(64)
	if err != nil {
		t.Fatal(err)
	}
	index := NewKeyIndex(nil)
	return NewCache(finder, store, index, 5*time.Minute, time.Hour), store, index
}

func TestCache_HitAndMissAgree(t *testing.T) {
	finder := &mockFinder{bookings: []model.Booking{
		booking("existing", at(10, 0), at(11, 0), model.BookingStatusApproved),
	}}
	c, _, _ := newTestCache(t, finder)
	ctx := context.Background()

	miss, err := c.CheckConflicts(ctx, "room", at(10, 30), at(11, 30), 1)
	if err != nil {
		t.Fatal(err)
	}
	hit, err := c.CheckConflicts(ctx, "room", at(10, 30).Add(20*time.Second), at(11, 30), 1)
	if err != nil {
		t.Fatal(err)
	}

	if finder.calls != 1 {
		t.Fatalf("equivalent minute windows should share an entry, finder calls = %d", finder.calls)
	}
	if miss.HasConflict != hit.HasConflict || miss.Reason != hit.Reason || len(miss.Conflicting) != len(hit.Conflicting) {
		t.Fatalf("cached verdict differs: miss=%+v hit=%+v", miss, hit)
	}
}

func TestCache_CapacityAppliedOnRead(t *testing.T) {
	finder := &mockFinder{bookings: []model.Booking{
		booking("a", at(9, 0), at(10, 0), model.BookingStatusPending),
	}}
	c, _, _ := newTestCache(t, finder)
	ctx := context.Background()

	res, _ := c.CheckConflicts(ctx, "room", at(9, 0), at(10, 0), 1)
	if !res.HasConflict {
		t.Fatal("capacity 1 should conflict")
	}
	res, _ = c.CheckConflicts(ctx, "room", at(9, 0), at(10, 0), 2)
	if res.HasConflict {
		t.Fatal("capacity 2 should admit using the same cached candidates")
	}
	if finder.calls != 1 {
		t.Fatalf("finder calls = %d, want 1", finder.calls)
	}
}

func TestCache_InvalidateForgetsOverlappingKeysOnly(t *testing.T) {
	finder := &mockFinder{}
	c, _, index := newTestCache(t, finder)
	ctx := context.Background()

	_, _ = c.CheckConflicts(ctx, "room", at(10, 0), at(11, 0), 1)
	_, _ = c.CheckConflicts(ctx, "room", at(14, 0), at(15, 0), 1)
	_, _ = c.CheckConflicts(ctx, "other", at(10, 0), at(11, 0), 1)
	if finder.calls != 3 || index.Len() != 3 {
		t.Fatalf("setup: calls=%d tracked=%d", finder.calls, index.Len())
	}

	finder.bookings = []model.Booking{booking("new", at(10, 30), at(11, 30), model.BookingStatusPending)}
	c.Invalidate("room", at(10, 30), at(11, 30))

	res, _ := c.CheckConflicts(ctx, "room", at(10, 0), at(11, 0), 1)
	if !res.HasConflict {
		t.Fatal("overlapping key should have been recomputed and see the new booking")
	}
	_, _ = c.CheckConflicts(ctx, "room", at(14, 0), at(15, 0), 1)
	_, _ = c.CheckConflicts(ctx, "other", at(10, 0), at(11, 0), 1)
	if finder.calls != 4 {
		t.Fatalf("only the overlapping key should miss, finder calls = %d", finder.calls)
	}
}

func TestCache_AvailabilityInvalidatedByDayAndWeek(t *testing.T) {
	c, _, _ := newTestCache(t, &mockFinder{})
	ctx := context.Background()
	computes := 0
	compute := func(context.Context) ([]model.BookedSlot, error) {
		computes++
		return []model.BookedSlot{{BookingID: "x"}}, nil
	}

	monday := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	sunday := monday.AddDate(0, 0, 6)

	_, _ = c.RememberAvailability(ctx, "room", monday, monday, compute)
	_, _ = c.RememberAvailability(ctx, "room", monday, sunday, compute)
	_, _ = c.RememberAvailability(ctx, "room", monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 7), compute)
	if computes != 3 {
		t.Fatalf("setup computes = %d", computes)
	}

	c.Invalidate("room", monday.Add(10*time.Hour), monday.Add(11*time.Hour))

	_, _ = c.RememberAvailability(ctx, "room", monday, monday, compute)
	_, _ = c.RememberAvailability(ctx, "room", monday, sunday, compute)
	_, _ = c.RememberAvailability(ctx, "room", monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 7), compute)
	if computes != 5 {
		t.Fatalf("day and week should recompute while next week stays cached, computes = %d", computes)
	}
}

func TestCache_InvalidateResource(t *testing.T) {
	finder := &mockFinder{}
	c, _, _ := newTestCache(t, finder)
	ctx := context.Background()

	_, _ = c.CheckConflicts(ctx, "room", at(10, 0), at(11, 0), 1)
	c.InvalidateResource("room")
	_, _ = c.CheckConflicts(ctx, "room", at(10, 0), at(11, 0), 1)

	if finder.calls != 2 {
		t.Fatalf("finder calls = %d, want 2", finder.calls)
	}
}

func TestBucketKeys(t *testing.T) {
	sunday := time.Date(2030, 3, 10, 23, 0, 0, 0, time.UTC)
	keys := BucketKeys("room", sunday, sunday.Add(2*time.Hour))
	sort.Strings(keys)

	want := []string{
		"resource_availability:room:20300304:20300310",
		"resource_availability:room:20300310:20300310",
		"resource_availability:room:20300311:20300311",
		"resource_availability:room:20300311:20300317",
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestBucketKeys_EndIsExclusive(t *testing.T) {
	day := time.Date(2030, 3, 5, 22, 0, 0, 0, time.UTC)
	keys := BucketKeys("room", day, day.Add(2*time.Hour))
	for _, k := range keys {
		if k == "resource_availability:room:20300306:20300306" {
			t.Fatalf("booking ending at midnight must not touch the next day: %v", keys)
		}
	}
}

func TestConflictKey_MinuteGranularity(t *testing.T) {
	start := time.Date(2030, 3, 4, 10, 0, 59, 0, time.FixedZone("CET", 3600))
	got := ConflictKey("room", start, start.Add(time.Hour))
	if got != "booking_conflicts:room:203003040900:203003041000" {
		t.Fatalf("ConflictKey = %s", got)
	}
}
