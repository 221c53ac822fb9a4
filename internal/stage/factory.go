package stage

import (
	"fmt"
	"path/filepath"

	"github.com/searchcore/searchcore/internal/stage/sqlite"
)

// New creates a staging Store for the given backend name ("sqlite" or
// "memory"). The sqlite backend keeps its scratch database inside
// stagingDir so a build's staging state lives entirely under one
// directory.
func New(backend, stagingDir string) (Store, error) {
	switch backend {
	case "", "sqlite":
		return sqlite.New(filepath.Join(stagingDir, "stage.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown stage backend: %s (supported: sqlite, memory)", backend)
	}
}
