package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/whisperbatch/component"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/storage"
)

// SweepReport summarises one pass over the temp root.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Reaper periodically deletes run directories older than a maximum age.
type Reaper struct {
	store    storage.Storage
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	lastSweep time.Time
	last      SweepReport
	sweeps    int
}

var (
	_ component.Component   = (*Reaper)(nil)
	_ component.Describable = (*Reaper)(nil)
)

// NewReaper creates a reaper over store, which must be rooted at the temp
// root.
func NewReaper(store storage.Storage, interval, maxAge time.Duration, log *logger.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Reaper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		log:      log.WithComponent("reaper"),
		now:      time.Now,
	}
}

// Name implements component.Component.
func (r *Reaper) Name() string { return "reaper" }

// Start ensures the temp root exists and begins sweeping. Calling Start on a
// running reaper does nothing.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	if err := r.store.MkdirAll(ctx, "/"); err != nil {
		return fmt.Errorf("reaper: create temp root: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)

	r.log.Info("cleanup scheduler started", logger.Fields("interval", r.interval.String(), "max_age", r.maxAge.String()))
	return nil
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Stop halts the sweep loop. It waits for an in-flight sweep until ctx is
// done and never returns an error.
func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		r.log.Info("cleanup scheduler stopped")
	case <-ctx.Done():
		r.log.Warn("cleanup scheduler did not stop in time", logger.ErrorFields("reaper.stop", ctx.Err()))
	}
	return nil
}

// Sweep deletes every directory directly under the temp root whose
// modification time is older than the maximum age. Failures on one
// directory are logged and do not stop the sweep.
func (r *Reaper) Sweep(ctx context.Context) SweepReport {
	ctx, span := observability.StartSpan(ctx, observability.SpanReaperSweep)
	defer span.End()

	var report SweepReport
	entries, err := r.store.List(ctx, "/")
	if err != nil {
		r.log.Error("failed to list temp root", logger.ErrorFields("reaper.sweep", err))
		observability.SetSpanError(ctx, err)
		r.record(report)
		return report
	}

	cutoff := r.now().Add(-r.maxAge)
	for _, entry := range entries {
		if !entry.IsDir {
			continue
		}
		report.Scanned++
		if !entry.LastModified.Before(cutoff) {
			continue
		}
		if err := r.store.Delete(ctx, entry.Path); err != nil {
			report.Failed++
			r.log.Warn("failed to clean up directory", logger.Fields(
				"path", entry.Path,
				logger.FieldError, err.Error(),
			))
			continue
		}
		report.Deleted++
		r.log.Info("cleaned up old directory", logger.Fields("path", entry.Path))
	}

	observability.SetSpanAttribute(ctx, "sweep.scanned", report.Scanned)
	observability.SetSpanAttribute(ctx, "sweep.deleted", report.Deleted)
	observability.SetSpanAttribute(ctx, "sweep.failed", report.Failed)
	r.record(report)
	return report
}

func (r *Reaper) record(report SweepReport) {
	r.mu.Lock()
	r.last = report
	r.lastSweep = r.now()
	r.sweeps++
	r.mu.Unlock()
}

// Health reports the outcome of the most recent sweep. A sweep that could
// not delete some directories degrades the reaper.
func (r *Reaper) Health(_ context.Context) component.Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := component.Health{
		Name:   r.Name(),
		Status: component.StatusHealthy,
		Details: map[string]any{
			"running": r.cancel != nil,
			"sweeps":  r.sweeps,
		},
	}
	if r.sweeps > 0 {
		h.Details["last_sweep"] = r.lastSweep.UTC().Format(time.RFC3339)
		h.Details["last_deleted"] = r.last.Deleted
		h.Details["last_failed"] = r.last.Failed
	}
	if r.last.Failed > 0 {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d directories could not be removed", r.last.Failed)
	}
	return h
}

// Describe implements component.Describable.
func (r *Reaper) Describe() component.Description {
	return component.Description{
		Name:    "Storage Reaper",
		Type:    "worker",
		Details: fmt.Sprintf("every %s, max age %s", r.interval, r.maxAge),
	}
}
