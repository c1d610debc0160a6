package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/router"
	"neurovision/pkg/api/utils"
	"neurovision/pkg/logger"
)

// Gateway applies CORS, the IP allow-list, admin authentication and
// per-client rate limiting in front of the router.
type Gateway struct {
	cfg      SecConfig
	limiters *limiterPool
}

func NewGateway(cfg SecConfig) *Gateway {
	return &Gateway{cfg: cfg, limiters: newLimiterPool(cfg.RPS, cfg.Burst)}
}

// Close stops the limiter cleanup loop.
func (g *Gateway) Close() {
	g.limiters.Shutdown()
}

func (g *Gateway) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		logger.LogRequestFast(ctx)

		origin := utils.GetHeader(ctx, "Origin")
		if origin != "" && originAllowed(origin, g.cfg.AllowedOrigins) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			ctx.Response.Header.Set("Access-Control-Max-Age", "600")
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-Filename")
			ctx.Response.Header.Set("Access-Control-Expose-Headers", "Content-Disposition")
		}
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		ip := utils.ClientIP(ctx)
		if len(g.cfg.IPWhitelist) > 0 && !ipWhitelisted(ip, g.cfg.IPWhitelist) {
			router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
			logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", utils.GetPath(ctx))
			return
		}

		// probes bypass auth and rate limits
		if publicAllowedPath(ctx) {
			next(ctx)
			return
		}

		key := utils.ExtractAPIKey(ctx)
		if utils.HasPathPrefix(ctx, "/admin") {
			if !g.isAdminKey(key) {
				router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "unauthorized")
				logger.Warn("request_unauthorized", "path", utils.GetPath(ctx), "remote", ip)
				return
			}
			ctx.SetUserValue(roleKey, RoleAdmin)
		}

		limiterKey := "ip:" + ip
		if key != "" && g.isAdminKey(key) {
			limiterKey = "key:" + key
		}
		if !g.limiters.Allow(limiterKey) {
			router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
			logger.Warn("rate_limited", "path", utils.GetPath(ctx), "remote", ip)
			return
		}

		next(ctx)
	}
}

func (g *Gateway) isAdminKey(key string) bool {
	if key == "" {
		return false
	}
	for k := range g.cfg.AdminKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}

func publicAllowedPath(ctx *fasthttp.RequestCtx) bool {
	path := utils.GetPath(ctx)
	return (path == "/healthz" || path == "/readyz") && string(ctx.Method()) == fasthttp.MethodGet
}
