// Package reservoir implements per-rule sampling quotas with token buckets.
package reservoir

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

var _ ports.Reservoir = (*Store)(nil)

type bucket struct {
	limiter   *rate.Limiter
	perSecond int
	lastUsed  time.Time
}

// Store holds one token bucket per rule. A bucket starts full, so a rule with
// reservoir N samples its first N decisions in any one-second window.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewStore creates a store that evicts buckets idle for longer than ttl.
// Call Stop to terminate the eviction goroutine.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &Store{
		buckets: make(map[string]*bucket),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Stop terminates the background eviction goroutine. It is safe to call twice.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) evictLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// Borrow takes one token from the rule's bucket. A zero quota never lends.
func (s *Store) Borrow(_ context.Context, rule string, perSecond int) bool {
	if perSecond <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[rule]
	if !ok {
		b = &bucket{
			limiter:   rate.NewLimiter(rate.Limit(perSecond), perSecond),
			perSecond: perSecond,
		}
		s.buckets[rule] = b
	} else if b.perSecond != perSecond {
		// Rule was replaced with a different reservoir size.
		b.limiter.SetLimit(rate.Limit(perSecond))
		b.limiter.SetBurst(perSecond)
		b.perSecond = perSecond
	}

	b.lastUsed = time.Now()
	return b.limiter.Allow()
}

// Forget drops the rule's bucket so a re-created rule starts with a full one.
func (s *Store) Forget(rule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, rule)
}

// Evict removes buckets unused for longer than the TTL.
func (s *Store) Evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for key, b := range s.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
