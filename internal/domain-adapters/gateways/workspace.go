// Package gateways implements infrastructure adapters for the scan
// pipeline: workspace lifecycle, git fetching, engine invocation,
// result aggregation, and delivery.
package gateways

import (
	"fmt"
	"os"
	"sync"

	"github.com/semscan/semscan/internal/domain/interfaces"
	"github.com/semscan/semscan/internal/domain/interfaces/gateways"
)

// workspace is a single-use scan directory. Release is idempotent so
// the pipeline can defer it unconditionally and still call it early
// on failure paths.
type workspace struct {
	path    string
	logger  interfaces.Logger
	release sync.Once
}

// Path returns the workspace directory.
func (w *workspace) Path() string { return w.path }

// Release removes the workspace recursively, exactly once. Removal
// failure is logged, never escalated: cleanup problems must not mask
// the pipeline's real outcome.
func (w *workspace) Release() {
	w.release.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			w.logger.Warn("failed to remove workspace", interfaces.F("path", w.path), interfaces.F("error", err))
			return
		}
		w.logger.Debug("workspace removed", interfaces.F("path", w.path))
	})
}

// WorkspaceFactory creates uniquely-named disposable workspaces under
// the system temp directory, so concurrent invocations share no state.
type WorkspaceFactory struct {
	logger interfaces.Logger
}

// NewWorkspaceFactory creates a new workspace factory
func NewWorkspaceFactory(logger interfaces.Logger) *WorkspaceFactory {
	return &WorkspaceFactory{logger: logger}
}

// Acquire creates a new empty directory with exclusive ownership by
// the caller.
func (f *WorkspaceFactory) Acquire() (gateways.Workspace, error) {
	dir, err := os.MkdirTemp("", "semscan-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	f.logger.Debug("workspace created", interfaces.F("path", dir))
	return &workspace{path: dir, logger: f.logger}, nil
}
