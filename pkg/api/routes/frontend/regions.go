package frontend

import (
	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/router"
	"neurovision/pkg/report"
	"neurovision/pkg/resolver"
)

// ListRegions returns the named regions in registry order.
func (h *Handlers) ListRegions(ctx *fasthttp.RequestCtx) {
	ids := h.Registry.Regions()
	out := make([]RegionSummary, 0, len(ids))
	for _, id := range ids {
		rec := h.Registry.Lookup(id)
		out = append(out, RegionSummary{
			ID:             id,
			Name:           resolver.RegionName(id),
			ConditionName:  rec.ConditionName,
			Classification: rec.Classification,
			Severity:       rec.Severity,
			Tone:           report.ToneOf(rec.Classification),
		})
	}
	_ = router.WriteJSON(ctx, map[string]interface{}{"regions": out})
}

// GetRegion returns one finding record. The default record is addressable
// by its id; anything else unknown is 404.
func (h *Handlers) GetRegion(ctx *fasthttp.RequestCtx) {
	id, ok := router.ExtractParamOrFail(ctx, "regionId", "region id required")
	if !ok {
		return
	}
	if !h.Registry.Has(id) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "unknown region")
		return
	}
	rec := h.Registry.Lookup(id)
	_ = router.WriteJSON(ctx, RegionDetail{
		Name:          resolver.RegionName(id),
		Tone:          report.ToneOf(rec.Classification),
		FindingRecord: rec,
	})
}

// ListQuestions returns the suggested chat prompts with the intent each
// one resolves to.
func (h *Handlers) ListQuestions(ctx *fasthttp.RequestCtx) {
	qs := resolver.QuickQuestions()
	out := make([]QuickQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, QuickQuestion{Text: q, Intent: resolver.Classify(q)})
	}
	_ = router.WriteJSON(ctx, map[string]interface{}{"questions": out})
}

// Resolve answers a question about a region without a session.
func (h *Handlers) Resolve(ctx *fasthttp.RequestCtx) {
	var req ResolveRequest
	if !router.DecodeJSONOrFail(ctx, &req) {
		return
	}
	intent, text := h.Resolver.ResolveIntent(req.Text, req.Region)
	_ = router.WriteJSON(ctx, ResolveResponse{Intent: intent, Text: text})
}
