package session

import (
	"math/rand/v2"
	"sync"
	"time"

	"neurovision/pkg/models"
	"neurovision/pkg/registry"
	"neurovision/pkg/resolver"
)

// Archiver receives every generated report. Failures are logged, never
// surfaced to the caller.
type Archiver interface {
	ArchiveReport(sessionID string, r models.Report) error
}

// Options configures sessions created by a Manager. Zero delays mean the
// step completes immediately.
type Options struct {
	ResponseDelay   time.Duration
	ResponseJitter  time.Duration
	ReportDelay     time.Duration
	ProcessingDelay time.Duration
	MaxUploadSize   int64

	IdleTTL     time.Duration
	MaxSessions int

	Registry *registry.Registry
	Resolver *resolver.Resolver
	Archiver Archiver
	// Rand seeds region selection and jitter. Nil uses the global generator.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	if o.Resolver == nil {
		o.Resolver = resolver.New(o.Registry)
	}
	if o.ResponseJitter < 0 {
		o.ResponseJitter = 0
	}
	return o
}

// picker serializes access to a shared *rand.Rand, which is not safe for
// concurrent use.
type picker struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (p *picker) region(reg *registry.Registry) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return reg.RandomRegion(p.src)
}

// jitter returns base shifted by a uniform offset in [-spread, spread],
// clamped at zero.
func (p *picker) jitter(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	p.mu.Lock()
	var n int64
	if p.src == nil {
		n = rand.Int64N(int64(2*spread) + 1)
	} else {
		n = p.src.Int64N(int64(2*spread) + 1)
	}
	p.mu.Unlock()
	d := base + time.Duration(n) - spread
	if d < 0 {
		return 0
	}
	return d
}
