package admin

import (
	"errors"

	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/router"
	"neurovision/pkg/api/utils"
	"neurovision/pkg/logger"
	"neurovision/pkg/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (h *Handlers) archiveOrFail(ctx *fasthttp.RequestCtx) bool {
	if h.Archive == nil || !h.Archive.Ready() {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "report archive disabled")
		return false
	}
	return true
}

func (h *Handlers) Stats(ctx *fasthttp.RequestCtx) {
	out := StatsResponse{}
	if h.Sessions != nil {
		out.Sessions = h.Sessions.Len()
	}
	if h.Archive != nil && h.Archive.Ready() {
		out.ArchiveEnabled = true
		n, err := h.Archive.Count()
		if err != nil {
			logger.Error("archive_count_failed", "error", err)
			router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "failed to count reports")
			return
		}
		out.ArchivedReports = n
	}
	if h.Purger != nil {
		if last, ok := h.Purger.LastRun(); ok {
			out.LastRetentionRun = &last
		}
	}
	_ = router.WriteJSON(ctx, out)
}

// ListReports returns archived reports, newest first.
func (h *Handlers) ListReports(ctx *fasthttp.RequestCtx) {
	if !h.archiveOrFail(ctx) {
		return
	}
	limit := utils.GetQueryInt(ctx, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	reports, err := h.Archive.ListReports(limit)
	if err != nil {
		logger.Error("archive_list_failed", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "failed to list reports")
		return
	}
	_ = router.WriteJSON(ctx, ReportsResponse{Reports: reports})
}

func (h *Handlers) GetReport(ctx *fasthttp.RequestCtx) {
	if !h.archiveOrFail(ctx) {
		return
	}
	id, ok := router.ExtractParamOrFail(ctx, "reportId", "report id required")
	if !ok {
		return
	}
	rec, err := h.Archive.GetReport(id)
	if errors.Is(err, store.ErrNotFound) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		logger.Error("archive_get_failed", "id", id, "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "failed to load report")
		return
	}
	_ = router.WriteJSON(ctx, rec)
}
