package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	PathsVar Paths
	initOnce sync.Once
	initErr  error
)

// EnsureStateDirs creates the layout under dataPath. Each directory must be
// a real directory (not a symlink) and writable.
func EnsureStateDirs(p Paths) error {
	for _, dir := range []string{p.Store, p.Retention} {
		if fi, err := os.Lstat(dir); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", dir)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", dir)
			}
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", dir, err)
		}
		tmp, err := os.CreateTemp(dir, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", dir, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	return nil
}

// Init resolves and creates the data layout once. Later calls return the
// first result.
func Init(dataPath string) error {
	initOnce.Do(func() {
		path := strings.TrimSpace(dataPath)
		if path == "" {
			path = DefaultDataPath()
		}
		PathsVar = PathsFor(filepath.Clean(path))
		initErr = EnsureStateDirs(PathsVar)
	})
	return initErr
}
