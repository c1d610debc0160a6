package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"mime/multipart"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"neurovision/internal/retention"
	"neurovision/pkg/api/auth"
	adminRoutes "neurovision/pkg/api/routes/admin"
	frontendRoutes "neurovision/pkg/api/routes/frontend"
	"neurovision/pkg/config"
	"neurovision/pkg/models"
	"neurovision/pkg/registry"
	"neurovision/pkg/resolver"
	"neurovision/pkg/session"
	"neurovision/pkg/store"
)

const adminKey = "admin-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type testServer struct {
	client   *fasthttp.Client
	sessions *session.Manager
	archive  *store.Store
	stop     context.CancelFunc
}

func newTestServer(t *testing.T, mutate func(*session.Options)) *testServer {
	t.Helper()
	archive, err := store.Open("archive", store.Options{FS: vfs.NewMem()})
	require.NoError(t, err)

	opts := session.Options{
		MaxUploadSize: 1 << 20,
		Archiver:      archive,
		Rand:          rand.New(rand.NewPCG(7, 7)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	sessions := session.NewManager(opts)
	reg := registry.Default()
	ret := retention.New(config.RetentionConfig{
		Enabled: true,
		Cron:    "0 2 * * *",
		Period:  config.Duration(24 * time.Hour),
	}, archive, t.TempDir())

	gw := auth.NewGateway(auth.SecConfig{
		RPS:       1000,
		Burst:     1000,
		AdminKeys: map[string]struct{}{adminKey: {}},
	})
	base, stop := context.WithCancel(context.Background())
	h := gw.Middleware(Handler(Deps{
		Frontend: &frontendRoutes.Handlers{
			Sessions:    sessions,
			Registry:    reg,
			Resolver:    resolver.New(reg),
			WaitTimeout: 2 * time.Second,
			BaseContext: base,
		},
		Admin: &adminRoutes.Handlers{Archive: archive, Purger: ret, Sessions: sessions},
	}))

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		stop()
		_ = srv.Shutdown()
		_ = ln.Close()
		gw.Close()
		sessions.Close()
		_ = archive.Close()
	})
	return &testServer{
		client:   &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }},
		sessions: sessions,
		archive:  archive,
		stop:     stop,
	}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte, headers ...string) (int, []byte, *fasthttp.ResponseHeader) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://neurovision" + path)
	req.Header.SetMethod(method)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if body != nil {
		req.SetBody(body)
	}
	require.NoError(t, s.client.Do(req, resp))

	var hdr fasthttp.ResponseHeader
	resp.Header.CopyTo(&hdr)
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), &hdr
}

func (s *testServer) doJSON(t *testing.T, method, path string, in interface{}, out interface{}) int {
	t.Helper()
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		require.NoError(t, err)
	}
	status, raw, _ := s.do(t, method, path, "application/json", body)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

func (s *testServer) newSessionWithScan(t *testing.T, region string) string {
	t.Helper()
	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))
	status, _, _ := s.do(t, "POST", "/v1/sessions/"+v.ID+"/image", "image/png", pngBytes)
	require.Equal(t, fasthttp.StatusCreated, status)
	if region != "" {
		require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "PUT", "/v1/sessions/"+v.ID+"/region",
			frontendRoutes.SelectRegionRequest{Region: region}, nil))
	}
	return v.ID
}

func TestRegions(t *testing.T) {
	s := newTestServer(t, nil)

	var list struct {
		Regions []frontendRoutes.RegionSummary `json:"regions"`
	}
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", "/v1/regions", nil, &list))
	require.Len(t, list.Regions, 10)
	assert.Equal(t, "frontal_lobe", list.Regions[0].ID)
	assert.Equal(t, "frontal lobe", list.Regions[0].Name)

	var detail frontendRoutes.RegionDetail
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", "/v1/regions/cerebellum", nil, &detail))
	assert.Equal(t, registry.Lookup("cerebellum").ConditionName, detail.ConditionName)

	assert.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", "/v1/regions/default", nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, s.doJSON(t, "GET", "/v1/regions/spleen", nil, nil))
}

func TestResolve(t *testing.T) {
	s := newTestServer(t, nil)

	var out frontendRoutes.ResolveResponse
	status := s.doJSON(t, "POST", "/v1/resolve", frontendRoutes.ResolveRequest{
		Text: "What are the symptoms?", Region: "cerebellum",
	}, &out)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, resolver.IntentSymptoms, out.Intent)
	assert.Equal(t, resolver.Resolve("What are the symptoms?", "cerebellum"), out.Text)

	status, _, _ = s.do(t, "POST", "/v1/resolve", "application/json", []byte("{"))
	assert.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestQuestions(t *testing.T) {
	s := newTestServer(t, nil)
	var out struct {
		Questions []frontendRoutes.QuickQuestion `json:"questions"`
	}
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", "/v1/questions", nil, &out))
	require.Len(t, out.Questions, 4)
	assert.Equal(t, "What does this image show?", out.Questions[0].Text)
	assert.Equal(t, resolver.IntentShow, out.Questions[0].Intent)
	assert.Equal(t, resolver.IntentDefault, out.Questions[3].Intent)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))
	assert.Equal(t, session.StatusWaitingForScan, v.Status)
	require.Len(t, v.Transcript, 1)

	var got session.View
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", "/v1/sessions/"+v.ID, nil, &got))
	assert.Equal(t, v.ID, got.ID)

	assert.Equal(t, fasthttp.StatusNoContent, s.doJSON(t, "DELETE", "/v1/sessions/"+v.ID, nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, s.doJSON(t, "GET", "/v1/sessions/"+v.ID, nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, s.doJSON(t, "DELETE", "/v1/sessions/"+v.ID, nil, nil))
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, func(o *session.Options) { o.MaxUploadSize = 128 })

	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))
	path := "/v1/sessions/" + v.ID + "/image"

	status, _, _ := s.do(t, "POST", path, "text/plain", []byte("hello"))
	assert.Equal(t, fasthttp.StatusUnsupportedMediaType, status)

	status, _, _ = s.do(t, "POST", path, "image/png", make([]byte, 200))
	assert.Equal(t, fasthttp.StatusRequestEntityTooLarge, status)

	status, raw, _ := s.do(t, "POST", path, "image/png", pngBytes, "X-Filename", "../scan.png")
	require.Equal(t, fasthttp.StatusCreated, status)
	var after session.View
	require.NoError(t, json.Unmarshal(raw, &after))
	require.NotNil(t, after.Image)
	assert.Equal(t, "scan.png", after.Image.Filename)
	assert.Contains(t, registry.Regions(), after.SelectedRegion)
}

func TestUploadImage_Multipart(t *testing.T) {
	s := newTestServer(t, nil)
	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="mri.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	status, raw, _ := s.do(t, "POST", "/v1/sessions/"+v.ID+"/image", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, fasthttp.StatusCreated, status, string(raw))
	var after session.View
	require.NoError(t, json.Unmarshal(raw, &after))
	require.NotNil(t, after.Image)
	assert.Equal(t, "mri.png", after.Image.Filename)
	assert.Equal(t, "image/png", after.Image.ContentType)
}

func TestMessages(t *testing.T) {
	s := newTestServer(t, nil)

	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))
	msgs := "/v1/sessions/" + v.ID + "/messages"

	var errBody map[string]string
	status := s.doJSON(t, "POST", msgs, frontendRoutes.MessageRequest{Text: "what does it show"}, &errBody)
	assert.Equal(t, fasthttp.StatusPreconditionFailed, status)
	assert.Equal(t, "no scan uploaded", errBody["error"])

	id := s.newSessionWithScan(t, "cerebellum")
	msgs = "/v1/sessions/" + id + "/messages"

	assert.Equal(t, fasthttp.StatusNoContent, s.doJSON(t, "POST", msgs, frontendRoutes.MessageRequest{Text: "   "}, nil))

	var out frontendRoutes.MessageResponse
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "POST", msgs+"?wait=true",
		frontendRoutes.MessageRequest{Text: "What are the symptoms?"}, &out))
	assert.Equal(t, "What are the symptoms?", out.User.Text)
	assert.False(t, out.Assistant.IsPending)
	assert.Equal(t, resolver.Resolve("What are the symptoms?", "cerebellum"), out.Assistant.Text)

	var tr frontendRoutes.TranscriptResponse
	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", msgs, nil, &tr))
	assert.False(t, tr.Pending)
	assert.Len(t, tr.Transcript, 3)
}

func TestMessages_PendingConflict(t *testing.T) {
	s := newTestServer(t, func(o *session.Options) { o.ResponseDelay = time.Hour })
	id := s.newSessionWithScan(t, "")
	msgs := "/v1/sessions/" + id + "/messages"

	var out frontendRoutes.MessageResponse
	require.Equal(t, fasthttp.StatusAccepted, s.doJSON(t, "POST", msgs, frontendRoutes.MessageRequest{Text: "show me"}, &out))
	assert.True(t, out.Assistant.IsPending)

	assert.Equal(t, fasthttp.StatusConflict, s.doJSON(t, "POST", msgs, frontendRoutes.MessageRequest{Text: "again"}, nil))
}

func TestMessages_WaitEndsOnServerStop(t *testing.T) {
	s := newTestServer(t, func(o *session.Options) { o.ResponseDelay = time.Hour })
	id := s.newSessionWithScan(t, "")
	sess, err := s.sessions.Get(id)
	require.NoError(t, err)

	go func() {
		deadline := time.Now().Add(time.Second)
		for !sess.Snapshot().Pending && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		s.stop()
	}()

	status := s.doJSON(t, "POST", "/v1/sessions/"+id+"/messages?wait=true",
		frontendRoutes.MessageRequest{Text: "show me"}, nil)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, status)
}

func TestReportFlow(t *testing.T) {
	s := newTestServer(t, nil)

	var v session.View
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions", nil, &v))
	assert.Equal(t, fasthttp.StatusPreconditionFailed, s.doJSON(t, "POST", "/v1/sessions/"+v.ID+"/report", nil, nil))

	id := s.newSessionWithScan(t, "thalamus")
	base := "/v1/sessions/" + id + "/report"

	assert.Equal(t, fasthttp.StatusNotFound, s.doJSON(t, "GET", base, nil, nil))
	status, _, _ := s.do(t, "GET", base+"/download", "", nil)
	assert.Equal(t, fasthttp.StatusNotFound, status)

	var rep frontendRoutes.ReportResponse
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", base, nil, &rep))
	assert.Equal(t, "thalamus", rep.RegionID)
	assert.NotEmpty(t, rep.Tone)

	require.Equal(t, fasthttp.StatusOK, s.doJSON(t, "GET", base, nil, &rep))
	assert.Equal(t, "thalamus", rep.RegionID)

	status, body, hdr := s.do(t, "GET", base+"/download", "", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.True(t, strings.HasPrefix(string(hdr.ContentType()), "text/plain"))
	assert.Contains(t, string(hdr.Peek("Content-Disposition")), `attachment; filename="neurovision-report-`)
	assert.Contains(t, string(body), "NEUROVISION INSIGHTS - MEDICAL ANALYSIS REPORT")
	assert.Contains(t, string(body), "Deformity Type: "+registry.Lookup("thalamus").ConditionName)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.newSessionWithScan(t, "amygdala")
	require.Equal(t, fasthttp.StatusCreated, s.doJSON(t, "POST", "/v1/sessions/"+id+"/report", nil, nil))

	status, _, _ := s.do(t, "GET", "/admin/reports", "", nil)
	assert.Equal(t, fasthttp.StatusUnauthorized, status)

	status, raw, _ := s.do(t, "GET", "/admin/reports", "", nil, "X-API-Key", adminKey)
	require.Equal(t, fasthttp.StatusOK, status)
	var list adminRoutes.ReportsResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Reports, 1)
	assert.Equal(t, id, list.Reports[0].SessionID)

	status, raw, _ = s.do(t, "GET", "/admin/reports/"+list.Reports[0].ID, "", nil, "X-API-Key", adminKey)
	require.Equal(t, fasthttp.StatusOK, status)
	var one models.ArchivedReport
	require.NoError(t, json.Unmarshal(raw, &one))
	assert.Equal(t, "amygdala", one.Report.RegionID)

	status, _, _ = s.do(t, "GET", "/admin/reports/00000000000000000001-nope", "", nil, "X-API-Key", adminKey)
	assert.Equal(t, fasthttp.StatusNotFound, status)

	status, _, _ = s.do(t, "GET", "/admin/reports?limit=0", "", nil, "X-API-Key", adminKey)
	assert.Equal(t, fasthttp.StatusBadRequest, status)

	status, raw, _ = s.do(t, "POST", "/admin/jobs/purge?dry_run=true", "", nil, "X-API-Key", adminKey)
	require.Equal(t, fasthttp.StatusOK, status)
	var res retention.RunResult
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.True(t, res.DryRun)
	assert.Equal(t, 0, res.Matched, "fresh reports are inside the retention period")

	status, raw, _ = s.do(t, "GET", "/admin/stats", "", nil, "X-API-Key", adminKey)
	require.Equal(t, fasthttp.StatusOK, status)
	var stats adminRoutes.StatsResponse
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 1, stats.Sessions)
	assert.True(t, stats.ArchiveEnabled)
	assert.Equal(t, 1, stats.ArchivedReports)
	require.NotNil(t, stats.LastRetentionRun)
	assert.Equal(t, res.RunID, stats.LastRetentionRun.RunID)
	assert.True(t, stats.LastRetentionRun.DryRun)

	status, raw, _ = s.do(t, "GET", "/admin/debug/prometheus", "", nil, "X-API-Key", adminKey)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(raw), "neurovision_reports_generated_total")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := Handler(Deps{Admin: &adminRoutes.Handlers{}})
	for _, path := range []string{"/admin/stats", "/admin/reports", "/admin/debug/prometheus"} {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod("GET")
		ctx.Request.SetRequestURI(path)
		h(&ctx)
		assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode(), path)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	status, raw, _ := s.do(t, "GET", "/v1/nope", "", nil)
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"not found"}`, string(raw))

	status, _, _ = s.do(t, "PUT", "/v1/regions", "", nil)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, status)
}
