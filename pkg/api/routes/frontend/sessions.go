package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/router"
	"neurovision/pkg/api/utils"
	"neurovision/pkg/report"
	"neurovision/pkg/session"
)

const imageFormField = "image"

func (h *Handlers) session(ctx *fasthttp.RequestCtx) (*session.Session, bool) {
	id, ok := router.ExtractParamOrFail(ctx, "sessionId", "session id required")
	if !ok {
		return nil, false
	}
	s, err := h.Sessions.Get(id)
	if err != nil {
		writeError(ctx, err)
		return nil, false
	}
	return s, true
}

// waitContext bounds a blocking call by the configured wait timeout and by
// server shutdown. The request context is not used as the parent: fasthttp
// mutates its done channel during Shutdown without synchronization.
func (h *Handlers) waitContext() (context.Context, context.CancelFunc) {
	parent := h.BaseContext
	if parent == nil {
		parent = context.Background()
	}
	if h.WaitTimeout > 0 {
		return context.WithTimeout(parent, h.WaitTimeout)
	}
	return context.WithCancel(parent)
}

func (h *Handlers) CreateSession(ctx *fasthttp.RequestCtx) {
	s, err := h.Sessions.Create()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Location", "/v1/sessions/"+s.ID())
	router.WriteJSONStatus(ctx, fasthttp.StatusCreated, s.Snapshot())
}

func (h *Handlers) GetSession(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	_ = router.WriteJSON(ctx, s.Snapshot())
}

func (h *Handlers) DeleteSession(ctx *fasthttp.RequestCtx) {
	id, ok := router.ExtractParamOrFail(ctx, "sessionId", "session id required")
	if !ok {
		return
	}
	if err := h.Sessions.Discard(id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// UploadImage accepts either a raw image body or a multipart form with an
// "image" file field.
func (h *Handlers) UploadImage(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	filename, contentType, data, err := readImage(ctx)
	if err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.UploadImage(filename, contentType, data); err != nil {
		writeError(ctx, err)
		return
	}
	router.WriteJSONStatus(ctx, fasthttp.StatusCreated, s.Snapshot())
}

func readImage(ctx *fasthttp.RequestCtx) (filename, contentType string, data []byte, err error) {
	ct := string(ctx.Request.Header.ContentType())
	mediaType, _, _ := mime.ParseMediaType(ct)
	if mediaType != "multipart/form-data" {
		filename = utils.GetHeader(ctx, "X-Filename")
		if filename == "" {
			filename = utils.GetQuery(ctx, "filename")
		}
		return baseName(filename), ct, append([]byte(nil), ctx.PostBody()...), nil
	}

	fh, err := ctx.FormFile(imageFormField)
	if err != nil {
		return "", "", nil, fmt.Errorf("multipart field %q required", imageFormField)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		return "", "", nil, fmt.Errorf("read upload: %w", err)
	}
	return baseName(fh.Filename), fh.Header.Get("Content-Type"), data, nil
}

func baseName(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}

// SelectRegion points the session at a different named region.
func (h *Handlers) SelectRegion(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	var req SelectRegionRequest
	if !router.DecodeJSONOrFail(ctx, &req) {
		return
	}
	if err := s.SelectRegion(strings.TrimSpace(req.Region)); err != nil {
		writeError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, s.Snapshot())
}

func (h *Handlers) ListMessages(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	if utils.GetQueryBool(ctx, "wait") {
		wctx, cancel := h.waitContext()
		defer cancel()
		if _, err := s.AwaitResponse(wctx); err != nil {
			writeError(ctx, err)
			return
		}
	}
	v := s.Snapshot()
	_ = router.WriteJSON(ctx, TranscriptResponse{Pending: v.Pending, Transcript: v.Transcript})
}

// PostMessage submits a chat message. Blank messages are ignored with 204.
// Without ?wait=true the pending assistant entry is returned with 202.
func (h *Handlers) PostMessage(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	var req MessageRequest
	if !router.DecodeJSONOrFail(ctx, &req) {
		return
	}
	user, pending, err := s.SubmitMessage(req.Text)
	if errors.Is(err, session.ErrEmptyMessage) {
		ctx.SetStatusCode(fasthttp.StatusNoContent)
		return
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !utils.GetQueryBool(ctx, "wait") {
		router.WriteJSONStatus(ctx, fasthttp.StatusAccepted, MessageResponse{User: user, Assistant: pending})
		return
	}
	wctx, cancel := h.waitContext()
	defer cancel()
	answer, err := s.AwaitResponse(wctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, MessageResponse{User: user, Assistant: answer})
}

// GenerateReport blocks for the report delay and returns the new report.
func (h *Handlers) GenerateReport(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	wctx, cancel := h.waitContext()
	defer cancel()
	r, err := s.GenerateReport(wctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	router.WriteJSONStatus(ctx, fasthttp.StatusCreated, ReportResponse{Tone: report.ToneOf(r.Classification), Report: r})
}

func (h *Handlers) GetReport(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	r, err := s.Report()
	if err != nil {
		writeError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, ReportResponse{Tone: report.ToneOf(r.Classification), Report: r})
}

// DownloadReport serves the rendered report as a text attachment.
func (h *Handlers) DownloadReport(ctx *fasthttp.RequestCtx) {
	s, ok := h.session(ctx)
	if !ok {
		return
	}
	body, filename, err := s.ExportReport()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}
