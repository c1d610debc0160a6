package state

import "path/filepath"

// Paths is the on-disk layout under the data path.
type Paths struct {
	Data      string
	Store     string
	State     string
	Retention string
	Crash     string
	Abort     string
}

func PathsFor(dataPath string) Paths {
	statePath := filepath.Join(dataPath, "state")
	return Paths{
		Data: dataPath,

		Store: filepath.Join(dataPath, "store"),

		State:     statePath,
		Retention: filepath.Join(statePath, "retention"),
		Crash:     filepath.Join(statePath, "crash"),
		Abort:     filepath.Join(statePath, "abort"),
	}
}
