package conflict

import (
	"reservo/pkg/model"
	"sync"
	"time"
)

type trackedKey struct {
	start     time.Time
	end       time.Time
	expiresAt time.Time
}

// KeyIndex remembers which cache keys were computed for which window of a
// resource so a write can forget exactly the keys it makes stale. Entries
// expire with the cache entry they describe.
type KeyIndex struct {
	mu         sync.Mutex
	now        func() time.Time
	byResource map[string]map[string]trackedKey
}

func NewKeyIndex(now func() time.Time) *KeyIndex {
	if now == nil {
		now = time.Now
	}
	return &KeyIndex{
		now:        now,
		byResource: make(map[string]map[string]trackedKey),
	}
}

func (i *KeyIndex) Track(resourceID, key string, start, end time.Time, ttl time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if keys, ok := i.byResource[resourceID]; ok {
		i.pruneLocked(resourceID, keys)
	}
	keys, ok := i.byResource[resourceID]
	if !ok {
		keys = make(map[string]trackedKey)
		i.byResource[resourceID] = keys
	}
	keys[key] = trackedKey{start: start, end: end, expiresAt: i.now().Add(ttl)}
}

// Take removes and returns the keys of resourceID whose window overlaps
// [start, end).
func (i *KeyIndex) Take(resourceID string, start, end time.Time) []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := i.byResource[resourceID]
	var out []string
	for key, tk := range keys {
		if model.Overlaps(tk.start, tk.end, start, end) {
			out = append(out, key)
			delete(keys, key)
		}
	}
	i.pruneLocked(resourceID, keys)
	return out
}

func (i *KeyIndex) TakeAll(resourceID string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := i.byResource[resourceID]
	out := make([]string, 0, len(keys))
	for key := range keys {
		out = append(out, key)
	}
	delete(i.byResource, resourceID)
	return out
}

func (i *KeyIndex) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, keys := range i.byResource {
		n += len(keys)
	}
	return n
}

func (i *KeyIndex) pruneLocked(resourceID string, keys map[string]trackedKey) {
	now := i.now()
	for key, tk := range keys {
		if !now.Before(tk.expiresAt) {
			delete(keys, key)
		}
	}
	if len(keys) == 0 {
		delete(i.byResource, resourceID)
	}
}
