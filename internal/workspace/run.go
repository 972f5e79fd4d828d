package workspace

import (
	"context"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/storage"
)

// Run is the working directory of one request.
type Run struct {
	// ID is the run's unique identifier and the name of its directory.
	ID string
	// Dir is the storage path of the directory, a direct child of the root.
	Dir     string
	Started time.Time

	committed atomic.Bool
}

// Path joins name onto the run directory.
func (r *Run) Path(name string) string {
	return path.Join(r.Dir, name)
}

// Commit marks the run's output as complete. After Commit the directory is
// only removed once the response has been delivered.
func (r *Run) Commit() {
	r.committed.Store(true)
}

// CleanupNeeded reports whether the run ended before its output was complete.
func (r *Run) CleanupNeeded() bool {
	return !r.committed.Load()
}

// Manager creates and releases run directories.
type Manager struct {
	store          storage.Storage
	retain         bool
	releaseTimeout time.Duration
	log            *logger.Logger
}

// NewManager creates a Manager over store, which must be rooted at the
// temp root.
func NewManager(store storage.Storage, cfg Config, log *logger.Logger) *Manager {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Manager{
		store:          store,
		retain:         cfg.RetainOnSuccess,
		releaseTimeout: cfg.ReleaseTimeout,
		log:            log.WithComponent("workspace"),
	}
}

// Begin creates a fresh run directory.
func (m *Manager) Begin(ctx context.Context) (*Run, error) {
	id := uuid.NewString()
	run := &Run{ID: id, Dir: "/" + id, Started: time.Now()}
	if err := m.store.MkdirAll(ctx, run.Dir); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	m.log.WithContext(ctx).Debug("run directory created", logger.Fields(logger.FieldRunID, id))
	return run, nil
}

// Release removes the run directory unless the run was committed and the
// manager retains delivered runs. It runs on a context detached from ctx so
// a cancelled request still cleans up.
func (m *Manager) Release(ctx context.Context, run *Run) {
	if run == nil {
		return
	}
	log := m.log.WithContext(ctx).With(logger.Fields(logger.FieldRunID, run.ID))
	if !run.CleanupNeeded() && m.retain {
		log.Debug("run directory retained for the reaper")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.releaseTimeout)
	defer cancel()

	if err := m.store.Delete(ctx, run.Dir); err != nil {
		log.Error("failed to remove run directory", logger.ErrorFields("workspace.release", err))
		return
	}
	if run.CleanupNeeded() {
		log.Info("cleaned up run directory after error")
	} else {
		log.Debug("run directory removed after delivery", logger.DurationFields("workspace.release", time.Since(run.Started)))
	}
}
