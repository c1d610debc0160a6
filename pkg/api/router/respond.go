package router

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// WriteJSON writes a JSON response with the current status code.
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteJSONStatus sets status and writes a JSON response.
func WriteJSONStatus(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	ctx.SetStatusCode(status)
	_ = WriteJSON(ctx, data)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

// DecodeJSONOrFail decodes the request body into v, answering 400 on failure.
func DecodeJSONOrFail(ctx *fasthttp.RequestCtx, v interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, "request body required")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// PathParam returns the captured path segment, or "".
func PathParam(ctx *fasthttp.RequestCtx, param string) string {
	if v, ok := ctx.UserValue(param).(string); ok {
		return v
	}
	return ""
}

// ExtractParamOrFail answers 400 with missingMsg when the path param is empty.
func ExtractParamOrFail(ctx *fasthttp.RequestCtx, param string, missingMsg string) (string, bool) {
	val := PathParam(ctx, param)
	if val == "" {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, missingMsg)
		return "", false
	}
	return val, true
}
