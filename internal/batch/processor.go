package batch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/internal/workspace"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/resilience"
	"github.com/kbukum/whisperbatch/storage"
)

// Processor runs batches against one transcription stage.
type Processor struct {
	rules   Rules
	store   storage.Storage
	saver   *Saver
	stage   *Stage
	metrics *Metrics
	log     *logger.Logger
}

// NewProcessor creates a Processor. metrics may be nil.
func NewProcessor(rules Rules, store storage.Storage, stage *Stage, metrics *Metrics, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Processor{
		rules:   rules,
		store:   store,
		saver:   NewSaver(store, log),
		stage:   stage,
		metrics: metrics,
		log:     log.WithComponent("batch"),
	}
}

// Rules returns the limits the processor enforces.
func (p *Processor) Rules() Rules { return p.rules }

// Check enforces the batch preconditions: item count, language, presence of
// a credential and, when the provider can tell, the credential's format.
// It touches neither storage nor the network.
func (p *Processor) Check(req Request) error {
	if p.rules.MaxItems > 0 && len(req.Items) > p.rules.MaxItems {
		return ErrTooManyItems(p.rules.MaxItems)
	}
	if !p.rules.SupportsLanguage(req.Language) {
		return ErrUnsupportedLanguage(req.Language)
	}
	if strings.TrimSpace(req.Credential) == "" {
		return ErrMissingCredential()
	}
	if err := p.stage.ValidateCredential(req.Credential); err != nil {
		return ErrInvalidCredential(err)
	}
	return nil
}

// Process validates, saves and transcribes every item of req inside run and
// writes the archive. Failures of single items are part of the Result; an
// error means the whole batch failed.
func (p *Processor) Process(ctx context.Context, run *workspace.Run, req Request) (res *Result, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanBatch)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRunID, run.ID)
	observability.SetSpanAttribute(ctx, observability.AttrLanguage, req.Language)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, p.stage.Provider())
	observability.SetSpanAttribute(ctx, "batch.items", len(req.Items))

	log := p.log.WithContext(ctx).With(logger.Fields(logger.FieldRunID, run.ID))
	defer func() {
		p.metrics.RecordBatch(ctx, batchResult(err), time.Since(start))
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
	}()

	if err := p.Check(req); err != nil {
		return nil, err
	}

	outcomes, reasons := p.validate(ctx, req.Items)
	if len(reasons) > 0 && len(reasons) == len(req.Items) {
		p.record(ctx, outcomes)
		log.Warn("every file was rejected", logger.Fields("rejected", len(reasons)))
		return nil, ErrNoValidItems(reasons)
	}

	saved := p.saveAll(ctx, run, req.Items, outcomes)
	p.transcribeAll(ctx, req, saved, outcomes)

	archivePath, size, err := BuildArchive(ctx, p.store, run.Dir, outcomes)
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}
	p.record(ctx, outcomes)

	res = &Result{ArchivePath: archivePath, ArchiveSize: size, Outcomes: outcomes}
	counts := res.Counts()
	log.Info("batch processed", logger.Fields(
		"items", len(outcomes),
		"transcribed", counts[StatusTranscribed],
		"rejected", counts[StatusRejected],
		"save_failed", counts[StatusSaveFailed],
		"failed", counts[StatusFailed],
		"archive_bytes", size,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res, nil
}

func (p *Processor) validate(ctx context.Context, items []Item) ([]Outcome, []string) {
	outcomes := make([]Outcome, len(items))
	var reasons []string
	for i, item := range items {
		o := p.rules.Validate(item)
		o.Index = i
		o.Name = item.Name
		o.OutputName = OutputName(item.Name)
		if o.Status == StatusRejected {
			reasons = append(reasons, o.Reason)
			p.log.WithContext(ctx).Warn("file validation error", logger.Fields(logger.FieldFile, item.Name, logger.FieldIndex, i, "reason", o.Reason))
		}
		outcomes[i] = o
	}
	return outcomes, reasons
}

// saveAll saves every accepted item concurrently. A failed save marks only
// its own outcome.
func (p *Processor) saveAll(ctx context.Context, run *workspace.Run, items []Item, outcomes []Outcome) []*SavedFile {
	saved := make([]*SavedFile, len(items))
	names := fileNames(items, outcomes)

	var wg sync.WaitGroup
	for i := range items {
		if outcomes[i].Status != StatusAccepted {
			continue
		}
		wg.Go(func() {
			err := p.item(ctx, i, items[i].Name, "save", func(ctx context.Context) error {
				sf, err := p.saver.Save(ctx, items[i], run.Dir, names[i], i)
				if err != nil {
					return err
				}
				saved[i] = sf
				return nil
			})
			if err != nil {
				outcomes[i].Status = StatusSaveFailed
				outcomes[i].Reason = err.Error()
				p.log.WithContext(ctx).Error("failed to save file", logger.Fields(logger.FieldFile, items[i].Name, logger.FieldIndex, i, logger.FieldError, err.Error()))
			}
		})
	}
	wg.Wait()
	return saved
}

// transcribeAll transcribes every saved file concurrently. The number of
// provider calls in flight is capped by the stage's bulkhead.
func (p *Processor) transcribeAll(ctx context.Context, req Request, saved []*SavedFile, outcomes []Outcome) {
	var wg sync.WaitGroup
	for i, sf := range saved {
		if sf == nil {
			continue
		}
		wg.Go(func() {
			var text string
			err := p.item(ctx, i, outcomes[i].Name, "transcribe", func(ctx context.Context) error {
				var err error
				text, err = p.stage.Transcribe(ctx, req.Credential, sf.Path, req.Language)
				return err
			})
			if err != nil {
				outcomes[i].Status = StatusFailed
				outcomes[i].Reason = err.Error()
				p.log.WithContext(ctx).Error("transcription failed", logger.Fields(
					logger.FieldFile, outcomes[i].Name,
					logger.FieldIndex, i,
					logger.FieldError, err.Error(),
					"rejected_by_bulkhead", resilience.IsRejection(err),
				))
				return
			}
			outcomes[i].Status = StatusTranscribed
			outcomes[i].Text = text
		})
	}
	wg.Wait()
}

// item runs one stage of one item in its own span. A panic is turned into
// an error so it stays local to the item.
func (p *Processor) item(ctx context.Context, index int, name, stage string, fn func(context.Context) error) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanBatchItem)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrItemIndex, index)
	observability.SetSpanAttribute(ctx, observability.AttrFileName, name)
	observability.SetSpanAttribute(ctx, "stage", stage)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "failed"
			observability.SetSpanError(ctx, err)
		}
		observability.SetSpanAttribute(ctx, observability.AttrOutcome, outcome)
	}()
	return fn(ctx)
}

func (p *Processor) record(ctx context.Context, outcomes []Outcome) {
	for _, o := range outcomes {
		p.metrics.RecordItem(ctx, o.Status)
	}
}

// fileNames picks the name each accepted item is saved under. Repeated
// names get the item index as a prefix so no upload overwrites another.
func fileNames(items []Item, outcomes []Outcome) []string {
	names := make([]string, len(items))
	used := map[string]bool{ArchiveName: true}
	for i, item := range items {
		if outcomes[i].Status == StatusAccepted {
			names[i] = claim(used, BaseName(item.Name), i)
		}
	}
	return names
}

func batchResult(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.HTTPStatus < http.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}
