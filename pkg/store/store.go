package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/dustin/go-humanize"

	"neurovision/pkg/logger"
	"neurovision/pkg/models"
	"neurovision/pkg/store/keys"
	"neurovision/pkg/telemetry"
)

var (
	ErrNotFound  = errors.New("report not found")
	ErrNotOpened = errors.New("store not opened")
)

// Options tunes the underlying pebble database.
type Options struct {
	DisableWAL bool
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS vfs.FS
}

// Store is the report archive.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	path   string
	lastTS int64
}

// Open opens or creates the archive at path.
func Open(path string, opts Options) (*Store, error) {
	po := &pebble.Options{DisableWAL: opts.DisableWAL}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	if opts.DisableWAL {
		logger.Warn("durability_disabled", "durability", "pebble WAL disabled")
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ready reports whether the database is open.
func (s *Store) Ready() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

func (s *Store) Path() string { return s.path }

// nextTS returns a strictly increasing timestamp so two reports archived
// in the same nanosecond never share a key.
func (s *Store) nextTS(at time.Time) int64 {
	ts := at.UnixNano()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// SaveReport archives r under the time it was generated.
func (s *Store) SaveReport(sessionID string, r models.Report) (models.ArchivedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return models.ArchivedReport{}, ErrNotOpened
	}
	ts := s.nextTS(r.GeneratedAt)
	key, err := keys.GenReportKey(ts, sessionID)
	if err != nil {
		return models.ArchivedReport{}, err
	}
	rec := models.ArchivedReport{
		ID:        keys.GenReportID(ts, sessionID),
		SessionID: sessionID,
		Report:    r,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return models.ArchivedReport{}, fmt.Errorf("marshal report: %w", err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_report_failed", "key", key, "error", err)
		return models.ArchivedReport{}, fmt.Errorf("save report: %w", err)
	}
	logger.Debug("save_report_ok", "id", rec.ID, "len", humanize.Bytes(uint64(len(data))))
	return rec, nil
}

// ArchiveReport lets the store act as a session archiver.
func (s *Store) ArchiveReport(sessionID string, r models.Report) error {
	_, err := s.SaveReport(sessionID, r)
	return err
}

// GetReport loads an archived report by id.
func (s *Store) GetReport(id string) (models.ArchivedReport, error) {
	key, err := keys.ReportKeyFromID(id)
	if err != nil {
		return models.ArchivedReport{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return models.ArchivedReport{}, ErrNotOpened
	}
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return models.ArchivedReport{}, ErrNotFound
		}
		return models.ArchivedReport{}, fmt.Errorf("get report: %w", err)
	}
	defer closer.Close()
	var rec models.ArchivedReport
	if err := json.Unmarshal(v, &rec); err != nil {
		return models.ArchivedReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return rec, nil
}

// ListReports returns up to limit archived reports, newest first. A
// non-positive limit returns all of them.
func (s *Store) ListReports(limit int) ([]models.ArchivedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotOpened
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keys.ReportPrefix),
		UpperBound: keys.ReportUpperBound,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.ArchivedReport{}
	for iter.Last(); iter.Valid(); iter.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var rec models.ArchivedReport
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			logger.Warn("archive_decode_failed", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// PurgeResult summarizes a purge pass.
type PurgeResult struct {
	Matched int  `json:"matched"`
	Deleted int  `json:"deleted"`
	DryRun  bool `json:"dryRun"`
}

// PurgeBefore deletes reports archived before cutoff. With dryRun set it
// only counts them.
func (s *Store) PurgeBefore(cutoff time.Time, dryRun bool) (PurgeResult, error) {
	res := PurgeResult{DryRun: dryRun}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return res, ErrNotOpened
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keys.ReportPrefix),
		UpperBound: keys.ReportKeyAt(cutoff.UnixNano()),
	})
	if err != nil {
		return res, err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		res.Matched++
		if !dryRun {
			if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				iter.Close()
				return res, err
			}
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return res, err
	}
	if err := iter.Close(); err != nil {
		return res, err
	}
	if dryRun || res.Matched == 0 {
		return res, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return res, fmt.Errorf("purge commit: %w", err)
	}
	res.Deleted = res.Matched
	telemetry.ReportsPurged.Add(float64(res.Deleted))
	return res, nil
}

// Count returns the number of archived reports. Only keys are read;
// malformed keys are skipped.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrNotOpened
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keys.ReportPrefix),
		UpperBound: keys.ReportUpperBound,
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if _, err := keys.ParseReportKey(string(iter.Key())); err != nil {
			logger.Warn("archive_key_invalid", "key", string(iter.Key()), "error", err)
			continue
		}
		n++
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return n, err
	}
	return n, iter.Close()
}
