package frontend

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/router"
	"neurovision/pkg/logger"
	"neurovision/pkg/session"
)

// statusFor maps session errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrNoReport):
		return fasthttp.StatusNotFound
	case errors.Is(err, session.ErrNoImage):
		return fasthttp.StatusPreconditionFailed
	case errors.Is(err, session.ErrResponsePending), errors.Is(err, session.ErrReportPending),
		errors.Is(err, session.ErrProcessing), errors.Is(err, session.ErrReportSuperseded):
		return fasthttp.StatusConflict
	case errors.Is(err, session.ErrInvalidImage):
		return fasthttp.StatusUnsupportedMediaType
	case errors.Is(err, session.ErrImageTooLarge):
		return fasthttp.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrUnknownRegion), errors.Is(err, session.ErrEmptyMessage):
		return fasthttp.StatusBadRequest
	case errors.Is(err, session.ErrTooManySessions):
		return fasthttp.StatusServiceUnavailable
	case errors.Is(err, session.ErrClosed):
		return fasthttp.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return fasthttp.StatusServiceUnavailable
	}
	return fasthttp.StatusInternalServerError
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == fasthttp.StatusInternalServerError {
		logger.Error("request_failed", "path", string(ctx.Path()), "error", err)
		msg = "internal error"
	}
	router.WriteJSONError(ctx, status, msg)
}
