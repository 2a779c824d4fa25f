package ratelimit

import (
	"sync"
	"time"
)

// Bucket is an interval-refill token bucket: the full capacity becomes
// available again once per refill interval, with refills applied lazily on
// access. Token count stays within [0, capacity].
type Bucket struct {
	mu         sync.Mutex
	capacity   int
	interval   time.Duration
	tokens     int
	lastRefill time.Time
}

func NewBucket(capacity int, interval time.Duration) *Bucket {
	return &Bucket{
		capacity:   capacity,
		interval:   interval,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// TryConsume admits the request if n tokens are available, consuming them.
// On denial it reports how long until the next refill.
func (b *Bucket) TryConsume(n int) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refill(now)

	if b.tokens >= n {
		b.tokens -= n
		return true, 0
	}

	wait := b.lastRefill.Add(b.interval).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return false, wait
}

// Tokens reports the currently available tokens after applying pending
// refills.
func (b *Bucket) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	return b.tokens
}

func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.interval {
		return
	}

	intervals := elapsed / b.interval
	b.tokens = b.capacity
	b.lastRefill = b.lastRefill.Add(intervals * b.interval)
}
