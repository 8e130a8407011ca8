package scenario

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLeaseHeld is returned when another owner holds an unexpired lease.
var ErrLeaseHeld = errors.New("session lease held")

type leaseEntry struct {
	owner   string
	expires time.Time
}

// LeaseInfo describes the current holder of a key.
type LeaseInfo struct {
	Owner     string
	ExpiresAt time.Time
}

// Lease grants exclusive, expiring ownership of named resources. The runner
// holds the browser-session key for the duration of one scenario.
type Lease struct {
	mu      sync.Mutex
	holders map[string]leaseEntry
	now     func() time.Time
}

func NewLease() *Lease {
	return &Lease{holders: make(map[string]leaseEntry), now: time.Now}
}

// TryLock takes or renews key for owner. A different owner holding an
// unexpired lease yields ErrLeaseHeld.
func (l *Lease) TryLock(key, owner string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	h, ok := l.holders[key]
	if ok && now.Before(h.expires) && h.owner != owner {
		return fmt.Errorf("%s is held by %s for another %v: %w", key, h.owner, h.expires.Sub(now).Round(time.Second), ErrLeaseHeld)
	}
	l.holders[key] = leaseEntry{owner: owner, expires: now.Add(ttl)}
	return nil
}

// Unlock releases key. Releasing an expired or absent lease is a no-op.
func (l *Lease) Unlock(key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holders[key]
	if !ok || l.now().After(h.expires) {
		delete(l.holders, key)
		return nil
	}
	if h.owner != owner {
		return fmt.Errorf("cannot release %s: held by %s: %w", key, h.owner, ErrLeaseHeld)
	}
	delete(l.holders, key)
	return nil
}

// Get returns the live holder of key, or nil.
func (l *Lease) Get(key string) *LeaseInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holders[key]
	if !ok || l.now().After(h.expires) {
		return nil
	}
	return &LeaseInfo{Owner: h.owner, ExpiresAt: h.expires}
}
