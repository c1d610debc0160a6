package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"neurovision/pkg/timeutil"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client and forgets clients
// idle longer than ttl. A non-positive rps disables limiting.
type limiterPool struct {
	rps   float64
	burst int

	mu            sync.Mutex
	m             map[string]*limiterEntry
	startCleanup  sync.Once
	stopOnce      sync.Once
	ttl           time.Duration
	cleanupPeriod time.Duration
	stopCh        chan struct{}
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if burst <= 0 {
		burst = 1
	}
	return &limiterPool{
		rps:           rps,
		burst:         burst,
		m:             make(map[string]*limiterEntry),
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = timeutil.Now()
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: timeutil.Now()}
	return l
}

// Allow reports whether key may make a request now.
func (p *limiterPool) Allow(key string) bool {
	if p.rps <= 0 {
		return true
	}
	return p.get(key).Allow()
}

func (p *limiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Shutdown stops the cleanup goroutine. Safe to call more than once.
func (p *limiterPool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *limiterPool) evictIdle(now time.Time) {
	cutoff := now.Add(-p.ttl)
	p.mu.Lock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}

func (p *limiterPool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evictIdle(timeutil.Now())
		case <-p.stopCh:
			return
		}
	}
}
