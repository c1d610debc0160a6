package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"neurovision/pkg/api/auth"
	"neurovision/pkg/api/router"
	adminRoutes "neurovision/pkg/api/routes/admin"
	frontendRoutes "neurovision/pkg/api/routes/frontend"
)

// Deps carries the handlers' dependencies.
type Deps struct {
	Frontend *frontendRoutes.Handlers
	Admin    *adminRoutes.Handlers
}

// wrapHTTPHandler adapts a net/http handler to fasthttp.
func wrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// requireAdmin rejects requests the gateway did not mark as admin.
func requireAdmin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if auth.RoleFrom(ctx) != auth.RoleAdmin {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, "admin role required")
			return
		}
		next(ctx)
	}
}

// RegisterRoutes wires all API routes onto the provided router.
func RegisterRoutes(r *router.Router, d Deps) {
	fe := d.Frontend
	// region registry
	r.GET("/v1/regions", fe.ListRegions)
	r.GET("/v1/regions/{regionId}", fe.GetRegion)
	r.POST("/v1/resolve", fe.Resolve)
	r.GET("/v1/questions", fe.ListQuestions)

	// sessions
	r.POST("/v1/sessions", fe.CreateSession)
	r.GET("/v1/sessions/{sessionId}", fe.GetSession)
	r.DELETE("/v1/sessions/{sessionId}", fe.DeleteSession)
	r.POST("/v1/sessions/{sessionId}/image", fe.UploadImage)
	r.PUT("/v1/sessions/{sessionId}/region", fe.SelectRegion)

	// chat
	r.GET("/v1/sessions/{sessionId}/messages", fe.ListMessages)
	r.POST("/v1/sessions/{sessionId}/messages", fe.PostMessage)

	// reports
	r.POST("/v1/sessions/{sessionId}/report", fe.GenerateReport)
	r.GET("/v1/sessions/{sessionId}/report", fe.GetReport)
	r.GET("/v1/sessions/{sessionId}/report/download", fe.DownloadReport)

	ad := d.Admin
	if ad == nil {
		ad = &adminRoutes.Handlers{}
	}
	// admin data routes
	r.GET("/admin/stats", requireAdmin(ad.Stats))
	r.GET("/admin/reports", requireAdmin(ad.ListReports))
	r.GET("/admin/reports/{reportId}", requireAdmin(ad.GetReport))

	// admin job routes
	r.POST("/admin/jobs/purge", requireAdmin(ad.RunRetentionCleanup))

	// admin debug routes
	r.GET("/admin/debug/prometheus", requireAdmin(wrapHTTPHandler(promhttp.Handler())))
	r.GET("/admin/debug/pprof/", requireAdmin(wrapHTTPHandler(http.HandlerFunc(pprof.Index))))
	r.GET("/admin/debug/pprof/profile", requireAdmin(wrapHTTPHandler(http.HandlerFunc(pprof.Profile))))
	r.GET("/admin/debug/pprof/heap", requireAdmin(wrapHTTPHandler(pprof.Handler("heap"))))
	r.GET("/admin/debug/pprof/goroutine", requireAdmin(wrapHTTPHandler(pprof.Handler("goroutine"))))
}

// Handler returns the routed API without middleware.
func Handler(d Deps) fasthttp.RequestHandler {
	r := router.New()
	RegisterRoutes(r, d)
	return r.Handler
}
