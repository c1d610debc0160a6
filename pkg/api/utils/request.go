package utils

import (
	"net"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

// GetHeader returns the trimmed header value.
func GetHeader(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(key)))
}

// GetQuery returns the trimmed query parameter value.
func GetQuery(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

// GetQueryInt parses an integer query parameter, falling back to def when
// missing or malformed.
func GetQueryInt(ctx *fasthttp.RequestCtx, key string, def int) int {
	value := GetQuery(ctx, key)
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}

// GetQueryBool treats 1/true/yes/on (any case) as true.
func GetQueryBool(ctx *fasthttp.RequestCtx, key string) bool {
	switch strings.ToLower(GetQuery(ctx, key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func GetPath(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Path())
}

func HasPathPrefix(ctx *fasthttp.RequestCtx, prefix string) bool {
	return strings.HasPrefix(GetPath(ctx), prefix)
}

// ExtractAPIKey reads a bearer token from Authorization, then X-API-Key.
func ExtractAPIKey(ctx *fasthttp.RequestCtx) string {
	if auth := GetHeader(ctx, "Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return GetHeader(ctx, "X-API-Key")
}

// ClientIP returns the remote host without port.
func ClientIP(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}
