package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"neurovision/pkg/config"
	"neurovision/pkg/logger"
	"neurovision/pkg/store"
	"neurovision/pkg/timeutil"
)

// ErrRunning is returned when a purge is requested while one is in progress.
var ErrRunning = errors.New("retention run already in progress")

// Purger deletes archived reports older than a cutoff.
type Purger interface {
	PurgeBefore(cutoff time.Time, dryRun bool) (store.PurgeResult, error)
}

// Manager schedules archive purges on a cron expression.
type Manager struct {
	cfg      config.RetentionConfig
	purger   Purger
	leaseDir string

	mu      sync.Mutex
	running bool
	last    *RunResult
}

func New(cfg config.RetentionConfig, purger Purger, leaseDir string) *Manager {
	return &Manager{cfg: cfg, purger: purger, leaseDir: leaseDir}
}

// Start runs the schedule loop until ctx is done. It returns immediately
// when retention is disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		logger.Info("retention_disabled")
		return
	}
	logger.Info("retention_enabled", "cron", m.cfg.Cron, "period", m.cfg.Period.Duration(), "dry_run", m.cfg.DryRun)
	go m.scheduleLoop(ctx)
}

// RunImmediate performs one purge now. dryRun is OR-ed with the
// configured dry_run setting.
func (m *Manager) RunImmediate(ctx context.Context, dryRun bool) (RunResult, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return RunResult{}, ErrRunning
	}
	m.running = true
	m.mu.Unlock()

	res, err := m.runOnce(ctx, dryRun || m.cfg.DryRun)

	m.mu.Lock()
	m.running = false
	if err == nil {
		m.last = &res
	}
	m.mu.Unlock()
	return res, err
}

// LastRun returns the result of the most recent successful run.
func (m *Manager) LastRun() (RunResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return RunResult{}, false
	}
	return *m.last, true
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		now := timeutil.Now()
		next, err := gronx.NextTickAfter(m.cfg.Cron, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		logger.Debug("retention_next_run", "at", next.Format(time.RFC3339), "in", wait)
		select {
		case <-time.After(wait):
			m.runJob(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) runJob(ctx context.Context) {
	if _, err := m.RunImmediate(ctx, false); err != nil && !errors.Is(err, ErrRunning) {
		logger.Error("retention_run_error", "error", err)
	}
}
