package retention

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"neurovision/pkg/logger"
	"neurovision/pkg/timeutil"
)

var errNotOwner = errors.New("lease not owned")

// fileLease is an on-disk lock that keeps two processes sharing a data
// directory from purging at the same time.
type fileLease struct {
	path string
}

type leaseFile struct {
	Owner   string `json:"owner"`
	Expires string `json:"expires"`
}

func newFileLease(dir string) *fileLease {
	return &fileLease{path: filepath.Join(dir, "retention.lock")}
}

func (l *fileLease) Acquire(owner string, ttl time.Duration) (bool, error) {
	now := timeutil.Now()
	b, err := json.Marshal(leaseFile{Owner: owner, Expires: now.Add(ttl).Format(time.RFC3339)})
	if err != nil {
		return false, err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		logger.Error("lease_tmp_write_failed", "path", tmp, "error", err)
		return false, err
	}
	// link fails when the lock already exists
	if err := os.Link(tmp, l.path); err == nil {
		_ = os.Remove(tmp)
		logger.Debug("lease_acquired", "path", l.path, "owner", owner)
		return true, nil
	}
	existing, err := l.read()
	if err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	expires, _ := time.Parse(time.RFC3339, existing.Expires)
	if expires.Before(now) {
		if err := os.Rename(tmp, l.path); err != nil {
			logger.Error("lease_replace_failed", "error", err)
			return false, err
		}
		logger.Info("lease_acquired_replaced", "path", l.path, "owner", owner, "previous", existing.Owner)
		return true, nil
	}
	_ = os.Remove(tmp)
	logger.Info("lease_currently_held", "path", l.path, "owner", existing.Owner)
	return false, nil
}

func (l *fileLease) Release(owner string) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		logger.Error("lease_release_not_owner", "owner", owner, "holder", existing.Owner)
		return errNotOwner
	}
	if err := os.Remove(l.path); err != nil {
		logger.Error("lease_release_remove_failed", "error", err)
		return err
	}
	logger.Debug("lease_released", "path", l.path, "owner", owner)
	return nil
}

func (l *fileLease) read() (leaseFile, error) {
	var lf leaseFile
	data, err := os.ReadFile(l.path)
	if err != nil {
		return lf, err
	}
	err = json.Unmarshal(data, &lf)
	return lf, err
}
