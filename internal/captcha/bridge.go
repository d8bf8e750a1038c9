// package captcha pairs pending visual challenges with an external solver.
//
// The automation flow publishes a challenge (screenshot + instruction text)
// and suspends until coordinates arrive, either from a human driving the
// HTTP solve endpoint or from an automated solver service.
package captcha

import (
	"sync"
	"time"
)

// Point is one click position inside the challenge surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Challenge is one outstanding visual puzzle.
type Challenge struct {
	Image  []byte // PNG screenshot of the challenge surface
	Prompt string // instruction text
}

type pending struct {
	challenge   Challenge
	coords      chan []Point
	publishedAt time.Time
}

// Bridge is the hand-off point between automation flows and solvers.
//
// Pending challenges are keyed by an attempt identifier so concurrent
// generation attempts do not clobber each other; a solver response is only
// ever delivered to the attempt it was addressed to. Publishing again under
// the same key discards the previous record, and solver input addressed to a
// discarded challenge is dropped.
type Bridge struct {
	mu    sync.Mutex
	slots map[string]*pending
}

// NewBridge creates an empty Bridge.
func NewBridge() *Bridge {
	return &Bridge{slots: make(map[string]*pending)}
}

// Publish installs a challenge under the given attempt key and returns the
// channel the solution will arrive on. Any unconsumed challenge under the
// same key is replaced; its waiter never receives anything and should select
// on its own context.
func (b *Bridge) Publish(key string, ch Challenge) <-chan []Point {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &pending{
		challenge:   ch,
		coords:      make(chan []Point, 1),
		publishedAt: time.Now(),
	}
	b.slots[key] = p
	return p.coords
}

// Peek returns the oldest pending challenge without consuming it.
// The returned key addresses the challenge in Resolve.
func (b *Bridge) Peek() (string, Challenge, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		oldestKey string
		oldest    *pending
	)
	for key, p := range b.slots {
		if oldest == nil || p.publishedAt.Before(oldest.publishedAt) {
			oldestKey, oldest = key, p
		}
	}
	if oldest == nil {
		return "", Challenge{}, false
	}
	return oldestKey, oldest.challenge, true
}

// Resolve delivers coordinates to the waiter registered under key and clears
// the slot. An empty key addresses the oldest pending challenge. Returns
// false when nothing matching is pending.
func (b *Bridge) Resolve(key string, coords []Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if key == "" {
		var oldest *pending
		for k, p := range b.slots {
			if oldest == nil || p.publishedAt.Before(oldest.publishedAt) {
				key, oldest = k, p
			}
		}
	}

	p, ok := b.slots[key]
	if !ok {
		return false
	}
	delete(b.slots, key)
	p.coords <- coords
	return true
}

// Discard removes a pending challenge without resolving it. Used when the
// automation flow gives up on an attempt (timeout, teardown).
func (b *Bridge) Discard(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.slots, key)
}

// PendingCount returns the number of outstanding challenges.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}
