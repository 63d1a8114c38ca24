// Package ratelimit counts security-sensitive operations per client inside
// fixed windows. Check is side-effect-free and Record commits the count, so
// an operation that fails validation after the check is never charged.
package ratelimit

import (
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/austin1233211/indian-poker-sub000/pkg/secerr"
)

// Class names a category of rate-limited operations.
type Class string

const (
	ClassProofGeneration Class = "proofGeneration"
	ClassDeckCommitment  Class = "deckCommitment"
	ClassHiddenCard      Class = "hidden_card"
)

// Limit caps a class at Max operations per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits caps the built-in security-sensitive operation classes.
func DefaultLimits() map[Class]Limit {
	return map[Class]Limit{
		ClassProofGeneration: {Max: 10, Window: time.Hour},
		ClassDeckCommitment:  {Max: 20, Window: time.Hour},
		ClassHiddenCard:      {Max: 10, Window: time.Minute},
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks windows per (clientID, class). Classes without a
// configured limit are always allowed.
type Limiter struct {
	mu      sync.Mutex
	clock   time2.Clock
	limits  map[Class]Limit
	windows map[string]*window
}

// NewLimiter creates a limiter; nil limits means DefaultLimits.
func NewLimiter(clock time2.Clock, limits map[Class]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		clock:   clock,
		limits:  limits,
		windows: make(map[string]*window),
	}
}

// Check reports whether the client may perform the operation. On rejection
// the returned error carries a positive RetryAfter. Check never mutates
// counters.
func (l *Limiter) Check(clientID string, class Class) error {
	limit, ok := l.limits[class]
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[key(clientID, class)]
	now := l.clock.Now()
	if w == nil || !now.Before(w.resetAt) {
		return nil
	}
	if w.count < limit.Max {
		return nil
	}
	return secerr.RateLimited(string(class)+" limit exceeded", w.resetAt.Sub(now))
}

// Record charges one operation to the client. Call it only after the
// operation was actually permitted and performed.
func (l *Limiter) Record(clientID string, class Class) {
	limit, ok := l.limits[class]
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(clientID, class)
	now := l.clock.Now()
	w := l.windows[k]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(limit.Window)}
		l.windows[k] = w
	}
	w.count++
}

// Sweep drops windows that have fully expired. Live windows are never
// mutated, so sweeps can run concurrently with request traffic.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	pruned := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			pruned++
		}
	}
	return pruned
}

func key(clientID string, class Class) string {
	return clientID + "|" + string(class)
}
