package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	artifactOnce sync.Once
	artifactRoot string
)

// ArtifactRoot is NEUROVISION_ARTIFACT_ROOT made absolute, or "" when unset.
func ArtifactRoot() string {
	artifactOnce.Do(func() {
		root := strings.TrimSpace(os.Getenv("NEUROVISION_ARTIFACT_ROOT"))
		if root == "" {
			return
		}
		if abs, err := filepath.Abs(root); err == nil {
			artifactRoot = abs
		} else {
			artifactRoot = root
		}
	})
	return artifactRoot
}

// DefaultDataPath is used when no data path is configured.
func DefaultDataPath() string {
	if root := ArtifactRoot(); root != "" {
		return filepath.Join(root, "data")
	}
	return "./.neurovision"
}
