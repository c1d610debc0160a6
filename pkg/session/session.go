package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"neurovision/pkg/logger"
	"neurovision/pkg/models"
	"neurovision/pkg/report"
	"neurovision/pkg/resolver"
	"neurovision/pkg/telemetry"
	"neurovision/pkg/timeutil"
)

const (
	welcomeText = "Welcome to Neurovision! Upload an MRI scan, then ask what the scan shows, the analysis results, the symptoms or the recommended treatment."
	pendingText = "Analyzing..."

	entryTimeLayout = "03:04 PM"
)

// Status summarizes where a session is in the upload / analyze flow.
type Status string

const (
	StatusWaitingForScan Status = "waiting_for_scan"
	StatusProcessing     Status = "processing"
	StatusReady          Status = "ready"
)

// Session holds the per-user state: uploaded scan, selected region,
// transcript and the latest report. All methods are safe for concurrent use.
type Session struct {
	id   string
	opts *Options
	rnd  *picker

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	image           *models.ScanImage
	imageData       []byte
	region          string
	transcript      []models.ConversationEntry
	seq             int
	report          *models.Report
	generating      bool
	analysis        uint64
	processingUntil time.Time
	pendingID       string
	pending         chan struct{}
	createdAt       time.Time
	lastSeen        time.Time
}

// View is a point-in-time copy of a session, safe to serialize.
type View struct {
	ID             string                     `json:"id"`
	Status         Status                     `json:"status"`
	SelectedRegion string                     `json:"selectedRegion"`
	RegionName     string                     `json:"regionName,omitempty"`
	Image          *models.ScanImage          `json:"image,omitempty"`
	Pending        bool                       `json:"pending"`
	Report         *models.Report             `json:"report,omitempty"`
	Transcript     []models.ConversationEntry `json:"transcript"`
	CreatedAt      time.Time                  `json:"createdAt"`
	LastSeen       time.Time                  `json:"lastSeen"`
}

func newSession(opts *Options, rnd *picker) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := timeutil.Now()
	s := &Session{
		id:        uuid.NewString(),
		opts:      opts,
		rnd:       rnd,
		ctx:       ctx,
		cancel:    cancel,
		createdAt: now,
		lastSeen:  now,
	}
	s.appendEntryLocked(models.AuthorAssistant, welcomeText, false)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = timeutil.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) appendEntryLocked(author models.Author, text string, pending bool) models.ConversationEntry {
	s.seq++
	e := models.ConversationEntry{
		ID:        fmt.Sprintf("msg-%06d", s.seq),
		Author:    author,
		Text:      text,
		IsPending: pending,
	}
	if !pending {
		e.Timestamp = timeutil.Now().Format(entryTimeLayout)
	}
	s.transcript = append(s.transcript, e)
	return e
}

func (s *Session) closed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) processingLocked(now time.Time) bool {
	return s.image != nil && now.Before(s.processingUntil)
}

// UploadImage stores a scan and resets the analysis: the report is cleared
// and a random named region becomes the selected region. An empty
// contentType is sniffed from the data.
func (s *Session) UploadImage(filename, contentType string, data []byte) (models.ScanImage, error) {
	if len(data) == 0 {
		return models.ScanImage{}, ErrInvalidImage
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if !strings.HasPrefix(mediaType, "image/") {
		return models.ScanImage{}, ErrInvalidImage
	}
	if limit := s.opts.MaxUploadSize; limit > 0 && int64(len(data)) > limit {
		return models.ScanImage{}, fmt.Errorf("%w: %s > %s", ErrImageTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(limit)))
	}

	sum := sha256.Sum256(data)
	now := timeutil.Now()
	img := models.ScanImage{
		Filename:    filename,
		ContentType: mediaType,
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		UploadedAt:  now,
	}

	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return models.ScanImage{}, ErrClosed
	}
	s.image = &img
	s.imageData = append([]byte(nil), data...)
	s.resetAnalysisLocked(now)
	region := s.region
	s.mu.Unlock()

	telemetry.ImagesUploaded.Inc()
	logger.Info("scan_uploaded", "session", s.id, "size", humanize.IBytes(uint64(img.Size)),
		"content_type", mediaType, "region", region)
	return img, nil
}

// resetAnalysisLocked starts a new analysis. Reports still being generated
// for the previous one are discarded when they complete.
func (s *Session) resetAnalysisLocked(now time.Time) {
	s.analysis++
	s.report = nil
	s.region = s.rnd.region(s.opts.Registry)
	s.processingUntil = now.Add(s.opts.ProcessingDelay)
}

// SelectRegion overrides the selected region. Only named regions are accepted.
func (s *Session) SelectRegion(regionID string) error {
	if !containsRegion(s.opts.Registry.Regions(), regionID) {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, regionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return ErrClosed
	}
	if s.image == nil {
		return ErrNoImage
	}
	s.region = regionID
	return nil
}

func containsRegion(ids []string, id string) bool {
	for _, r := range ids {
		if r == id {
			return true
		}
	}
	return false
}

// SubmitMessage appends the user's message and a pending assistant entry.
// The pending entry is resolved against the region selected at submission
// once the simulated response delay has elapsed.
func (s *Session) SubmitMessage(text string) (user, pending models.ConversationEntry, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		telemetry.ChatRejected.WithLabelValues("empty").Inc()
		return user, pending, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return user, pending, ErrClosed
	}
	if s.image == nil {
		s.mu.Unlock()
		telemetry.ChatRejected.WithLabelValues("no_image").Inc()
		return user, pending, ErrNoImage
	}
	if s.pending != nil {
		s.mu.Unlock()
		telemetry.ChatRejected.WithLabelValues("pending").Inc()
		return user, pending, ErrResponsePending
	}
	user = s.appendEntryLocked(models.AuthorUser, text, false)
	pending = s.appendEntryLocked(models.AuthorAssistant, pendingText, true)
	done := make(chan struct{})
	s.pending = done
	s.pendingID = pending.ID
	region := s.region
	s.lastSeen = timeutil.Now()
	s.mu.Unlock()

	delay := s.rnd.jitter(s.opts.ResponseDelay, s.opts.ResponseJitter)
	go s.finalize(pending.ID, text, region, delay, done)
	return user, pending, nil
}

func (s *Session) finalize(entryID, text, region string, delay time.Duration, done chan struct{}) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.ctx.Done():
		return
	}

	intent, answer := s.opts.Resolver.ResolveIntent(text, region)

	s.mu.Lock()
	for i := range s.transcript {
		if s.transcript[i].ID == entryID {
			s.transcript[i].Text = answer
			s.transcript[i].IsPending = false
			s.transcript[i].Intent = string(intent)
			s.transcript[i].Timestamp = timeutil.Now().Format(entryTimeLayout)
			break
		}
	}
	if s.pendingID == entryID {
		s.pending = nil
		s.pendingID = ""
	}
	s.mu.Unlock()
	close(done)

	telemetry.ChatResponses.WithLabelValues(string(intent)).Inc()
	logger.Debug("chat_resolved", "session", s.id, "intent", intent, "region", region, "delay", delay)
}

// AwaitResponse blocks until the pending assistant entry resolves and
// returns it. With nothing pending it returns the latest assistant entry.
func (s *Session) AwaitResponse(ctx context.Context) (models.ConversationEntry, error) {
	s.mu.Lock()
	done, id := s.pending, s.pendingID
	if done == nil {
		e := s.lastAssistantLocked()
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return models.ConversationEntry{}, ctx.Err()
	case <-s.ctx.Done():
		return models.ConversationEntry{}, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.transcript {
		if e.ID == id {
			return e, nil
		}
	}
	return s.lastAssistantLocked(), nil
}

func (s *Session) lastAssistantLocked() models.ConversationEntry {
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if s.transcript[i].Author == models.AuthorAssistant {
			return s.transcript[i]
		}
	}
	return models.ConversationEntry{}
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []models.ConversationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationEntry(nil), s.transcript...)
}

// GenerateReport waits out the report delay and builds a report from the
// selected region's record. The wait is cancelled by ctx or by Close. A scan
// uploaded during the wait supersedes the report and ErrReportSuperseded is
// returned.
func (s *Session) GenerateReport(ctx context.Context) (models.Report, error) {
	s.mu.Lock()
	switch {
	case s.closed():
		s.mu.Unlock()
		return models.Report{}, ErrClosed
	case s.image == nil:
		s.mu.Unlock()
		return models.Report{}, ErrNoImage
	case s.processingLocked(timeutil.Now()):
		s.mu.Unlock()
		return models.Report{}, ErrProcessing
	case s.generating:
		s.mu.Unlock()
		return models.Report{}, ErrReportPending
	}
	s.generating = true
	region, analysis := s.region, s.analysis
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}

	if s.opts.ReportDelay > 0 {
		timer := time.NewTimer(s.opts.ReportDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			release()
			return models.Report{}, ctx.Err()
		case <-s.ctx.Done():
			timer.Stop()
			release()
			return models.Report{}, ErrClosed
		}
	}

	r := report.New(s.opts.Registry.Lookup(region), timeutil.Now())

	s.mu.Lock()
	s.generating = false
	if s.analysis != analysis {
		s.mu.Unlock()
		logger.Info("report_superseded", "session", s.id, "region", region)
		return models.Report{}, ErrReportSuperseded
	}
	s.report = &r
	s.mu.Unlock()

	telemetry.ReportsGenerated.WithLabelValues(r.RegionID).Inc()
	logger.Info("report_generated", "session", s.id, "region", r.RegionID, "classification", r.Classification)

	if s.opts.Archiver != nil {
		if err := s.opts.Archiver.ArchiveReport(s.id, r); err != nil {
			logger.Warn("report_archive_failed", "session", s.id, "error", err)
		}
	}
	return r, nil
}

// Report returns the latest generated report.
func (s *Session) Report() (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return models.Report{}, ErrNoReport
	}
	return *s.report, nil
}

// ExportReport renders the latest report as the downloadable text document.
// The date, time and filename reflect the moment of export.
func (s *Session) ExportReport() (body []byte, filename string, err error) {
	r, err := s.Report()
	if err != nil {
		return nil, "", err
	}
	now := timeutil.Now()
	return report.Render(r, now), report.Filename(now), nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := timeutil.Now()
	v := View{
		ID:             s.id,
		SelectedRegion: s.region,
		Pending:        s.pending != nil,
		Transcript:     append([]models.ConversationEntry(nil), s.transcript...),
		CreatedAt:      s.createdAt,
		LastSeen:       s.lastSeen,
	}
	if s.region != "" {
		v.RegionName = resolver.RegionName(s.region)
	}
	switch {
	case s.image == nil:
		v.Status = StatusWaitingForScan
	case s.processingLocked(now):
		v.Status = StatusProcessing
	default:
		v.Status = StatusReady
	}
	if s.image != nil {
		img := *s.image
		v.Image = &img
	}
	if s.report != nil {
		r := *s.report
		v.Report = &r
	}
	return v
}

// Close cancels pending timers and releases the scan. It is idempotent.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	s.imageData = nil
	s.mu.Unlock()
}
