package traffic

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SlidingWindow allows at most limit events per key within any rolling window.
// Keys are tracked in a bounded LRU, so idle requesters are forgotten first.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   *lru.Cache[string, []time.Time]
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration, capacity int) (*SlidingWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("sliding window: limit and window must be positive, got %d/%s", limit, window)
	}
	if capacity <= 0 {
		capacity = 10000
	}
	hits, err := lru.New[string, []time.Time](capacity)
	if err != nil {
		return nil, fmt.Errorf("sliding window cache: %w", err)
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   hits,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source.
func (w *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	w.now = now
	return w
}

// Allow records an event for key when under the limit. Otherwise it reports
// how long until the oldest event leaves the window.
func (w *SlidingWindow) Allow(key string) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	stamps, _ := w.hits.Get(key)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= w.limit {
		w.hits.Add(key, kept)
		return false, kept[0].Add(w.window).Sub(now)
	}

	w.hits.Add(key, append(kept, now))
	return true, 0
}

// Tracked is the number of keys currently held.
func (w *SlidingWindow) Tracked() int {
	return w.hits.Len()
}
