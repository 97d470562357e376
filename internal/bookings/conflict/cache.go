package conflict

import (
	"context"
	"reservo/pkg/cache"
	"reservo/pkg/model"
	"time"
)

// Cache memoizes conflict checks and availability windows. Its answers are
// advisory: admission never trusts them.
type Cache interface {
	CheckConflicts(ctx context.Context, resourceID string, start, end time.Time, capacity int) (Result, error)
	RememberAvailability(ctx context.Context, resourceID string, fromDay, toDay time.Time, compute func(ctx context.Context) ([]model.BookedSlot, error)) ([]model.BookedSlot, error)
	// Invalidate forgets every entry of resourceID that a change to the
	// active bookings within [start, end) could have made stale.
	Invalidate(resourceID string, start, end time.Time)
	InvalidateResource(resourceID string)
}

type cachedDetector struct {
	finder          Finder
	store           cache.Store
	index           *KeyIndex
	conflictTTL     time.Duration
	availabilityTTL time.Duration
}

func NewCache(finder Finder, store cache.Store, index *KeyIndex, conflictTTL, availabilityTTL time.Duration) Cache {
	if index == nil {
		index = NewKeyIndex(nil)
	}
	return &cachedDetector{
		finder:          finder,
		store:           store,
		index:           index,
		conflictTTL:     conflictTTL,
		availabilityTTL: availabilityTTL,
	}
}

// CheckConflicts caches the overlapping bookings, not the verdict, so a
// capacity change is reflected without invalidation.
func (c *cachedDetector) CheckConflicts(ctx context.Context, resourceID string, start, end time.Time, capacity int) (Result, error) {
	start, end = NormalizeMinute(start), NormalizeMinute(end)
	key := ConflictKey(resourceID, start, end)

	overlapping, err := cache.Remember(ctx, c.store, key, c.conflictTTL, func(ctx context.Context) ([]model.Booking, error) {
		c.index.Track(resourceID, key, start, end, c.conflictTTL)
		return c.finder.FindActiveOverlapping(ctx, resourceID, start, end, "")
	})
	if err != nil {
		return Result{}, err
	}
	return Evaluate(capacity, start, end, overlapping), nil
}

func (c *cachedDetector) RememberAvailability(ctx context.Context, resourceID string, fromDay, toDay time.Time, compute func(ctx context.Context) ([]model.BookedSlot, error)) ([]model.BookedSlot, error) {
	from := StartOfDay(fromDay)
	to := StartOfDay(toDay).AddDate(0, 0, 1)
	key := AvailabilityKey(resourceID, from, toDay)

	slots, err := cache.Remember(ctx, c.store, key, c.availabilityTTL, func(ctx context.Context) ([]model.BookedSlot, error) {
		c.index.Track(resourceID, key, from, to, c.availabilityTTL)
		return compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.BookedSlot, len(slots))
	copy(out, slots)
	return out, nil
}

func (c *cachedDetector) Invalidate(resourceID string, start, end time.Time) {
	keys := c.index.Take(resourceID, start, end)
	keys = append(keys, BucketKeys(resourceID, start, end)...)
	c.store.Forget(keys...)
}

func (c *cachedDetector) InvalidateResource(resourceID string) {
	c.store.Forget(c.index.TakeAll(resourceID)...)
}
