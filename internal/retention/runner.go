package retention

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"neurovision/pkg/logger"
	"neurovision/pkg/timeutil"
)

const leaseTTL = 5 * time.Minute

// RunResult describes one purge pass.
type RunResult struct {
	RunID   string    `json:"runId"`
	Cutoff  time.Time `json:"cutoff"`
	Matched int       `json:"matched"`
	Purged  int       `json:"purged"`
	DryRun  bool      `json:"dryRun"`
	Skipped bool      `json:"skipped,omitempty"`
}

// runOnce takes the lease, computes the cutoff and purges archived reports
// older than the retention period.
func (m *Manager) runOnce(ctx context.Context, dryRun bool) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), DryRun: dryRun}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if m.purger == nil {
		return res, fmt.Errorf("retention: archive not available")
	}

	if m.leaseDir != "" {
		if err := os.MkdirAll(m.leaseDir, 0o700); err != nil {
			return res, fmt.Errorf("lease dir: %w", err)
		}
		lock := newFileLease(m.leaseDir)
		acq, err := lock.Acquire(res.RunID, leaseTTL)
		if err != nil {
			logger.Error("retention_lease_acquire_error", "error", err)
			return res, fmt.Errorf("lease acquire failed: %w", err)
		}
		if !acq {
			res.Skipped = true
			return res, nil
		}
		defer func() {
			if err := lock.Release(res.RunID); err != nil {
				logger.Error("retention_lease_release_error", "error", err)
			}
		}()
	}

	period := m.cfg.Period.Duration()
	if period <= 0 {
		return res, fmt.Errorf("invalid retention period: %s", period)
	}
	res.Cutoff = timeutil.Now().Add(-period)
	logger.Info("retention_run_start", "run_id", res.RunID, "cutoff", res.Cutoff.Format(time.RFC3339), "dry_run", dryRun)

	pr, err := m.purger.PurgeBefore(res.Cutoff, dryRun)
	if err != nil {
		logger.Error("retention_purge_failed", "run_id", res.RunID, "error", err)
		return res, fmt.Errorf("purge: %w", err)
	}
	res.Matched = pr.Matched
	res.Purged = pr.Deleted

	logger.Info("retention_run_complete", "run_id", res.RunID, "matched", res.Matched, "purged", res.Purged)
	return res, nil
}
