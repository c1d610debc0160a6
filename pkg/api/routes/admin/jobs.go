package admin

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"

	"neurovision/internal/retention"
	"neurovision/pkg/api/router"
	"neurovision/pkg/api/utils"
	"neurovision/pkg/logger"
)

// RunRetentionCleanup purges archived reports older than the retention
// period. ?dry_run=true only counts them.
func (h *Handlers) RunRetentionCleanup(ctx *fasthttp.RequestCtx) {
	if h.Purger == nil {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "retention not configured")
		return
	}
	dryRun := utils.GetQueryBool(ctx, "dry_run")
	base := h.BaseContext
	if base == nil {
		base = context.Background()
	}
	res, err := h.Purger.RunImmediate(base, dryRun)
	if errors.Is(err, retention.ErrRunning) {
		router.WriteJSONError(ctx, fasthttp.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Error("retention_job_failed", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "retention run failed")
		return
	}
	logger.Info("retention_job_ran", "run_id", res.RunID, "purged", res.Purged, "dry_run", res.DryRun)
	_ = router.WriteJSON(ctx, res)
}
