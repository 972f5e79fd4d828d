package app

import (
	"cmp"
	"context"
	"fmt"

	"github.com/kbukum/whisperbatch/bootstrap"
	"github.com/kbukum/whisperbatch/internal/api"
	"github.com/kbukum/whisperbatch/internal/batch"
	"github.com/kbukum/whisperbatch/internal/workspace"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/resilience"
	"github.com/kbukum/whisperbatch/server"
	"github.com/kbukum/whisperbatch/server/endpoint"
	"github.com/kbukum/whisperbatch/server/middleware"
	"github.com/kbukum/whisperbatch/storage"
	_ "github.com/kbukum/whisperbatch/storage/local"
	"github.com/kbukum/whisperbatch/transcription"
	"github.com/kbukum/whisperbatch/transcription/openai"
	"github.com/kbukum/whisperbatch/transcription/whisper"
	"github.com/kbukum/whisperbatch/util"
	"github.com/kbukum/whisperbatch/version"
)

// TranscribePath is the route carrying its own rate limit.
const TranscribePath = "/transcribe"

// Service holds the wired parts of the transcriber.
type Service struct {
	Store     storage.Storage
	Workspace *workspace.Manager
	Reaper    *workspace.Reaper
	Processor *batch.Processor
	Server    *server.Server
}

// NewProvider builds the configured transcription backend.
func NewProvider(cfg ProviderConfig) (transcription.Provider, error) {
	registry := transcription.NewRegistry()
	registry.Register(openai.ProviderName, openai.Factory())
	registry.Register(whisper.ProviderName, whisper.Factory())

	p, err := registry.Create(cfg.Name, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, err)
	}
	return p, nil
}

// NewStorage opens the local storage rooted at the workspace temp root.
func NewStorage(cfg *Config, log *logger.Logger) (storage.Storage, error) {
	return storage.New(storage.Config{
		Provider: storage.ProviderLocal,
		BasePath: cfg.Workspace.TempRoot,
	}, log)
}

// Build creates every part of the service and registers the components on
// a in start order: telemetry, reaper, HTTP server.
func Build(a *bootstrap.App[*Config]) (*Service, error) {
	cfg := a.Cfg
	log := a.Logger

	obs := observability.NewComponent(cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cmp.Or(cfg.Version, version.GetShortVersion()),
		Environment: cfg.Environment,
	}, log)

	store, err := NewStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	p, err := NewProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	processor, err := NewProcessor(cfg, store, p, log)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Store:     store,
		Workspace: workspace.NewManager(store, cfg.Workspace, log),
		Reaper:    workspace.NewReaper(store, cfg.Workspace.SweepInterval, cfg.Workspace.MaxAge, log),
		Processor: processor,
	}
	svc.Server, err = NewServer(cfg, svc, a.Components.HealthAll, log)
	if err != nil {
		return nil, err
	}

	if err := a.RegisterComponent(obs); err != nil {
		return nil, err
	}
	if err := a.RegisterComponent(svc.Reaper); err != nil {
		return nil, err
	}
	if err := a.RegisterComponent(server.NewComponent(svc.Server)); err != nil {
		return nil, err
	}

	a.Summary.TrackInfrastructure("Transcription Provider", "provider",
		fmt.Sprintf("%s, %d files per request, %s per file, %d concurrent calls",
			p.Name(), cfg.Batch.MaxItems, cfg.Batch.MaxFileSize, cfg.Batch.MaxConcurrentCalls), 0)
	a.Hook(bootstrap.PhaseReady, func(context.Context) error {
		log.Info("accepting transcriptions", logger.Fields(
			"provider", p.Name(),
			"max_items", cfg.Batch.MaxItems,
			"languages", cfg.Batch.Languages,
		))
		return nil
	})
	return svc, nil
}

// NewProcessor builds the batch processor around p. Provider calls from
// every request share one bulkhead.
func NewProcessor(cfg *Config, store storage.Storage, p transcription.Provider, log *logger.Logger) (*batch.Processor, error) {
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "provider." + p.Name(),
		MaxConcurrent: cfg.Batch.MaxConcurrentCalls,
		MaxWait:       cfg.Batch.CallWait,
		OnReject: func(name string, err error) {
			log.Warn("provider call rejected", logger.Fields("bulkhead", name, logger.FieldError, err.Error()))
		},
	})

	metrics, err := batch.NewMetrics(observability.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("batch metrics: %w", err)
	}

	stage := batch.NewStage(store, p, bulkhead, cfg.Name, log)
	return batch.NewProcessor(cfg.Batch.Rules(), store, stage, metrics, log), nil
}

// NewServer creates the HTTP server with the standard middleware, the rate
// limiters, the operational endpoints and the transcription routes.
func NewServer(cfg *Config, svc *Service, checker endpoint.HealthChecker, log *logger.Logger) (*server.Server, error) {
	srv := server.New(cfg.Server, log)

	httpMetrics, err := observability.NewMetrics(observability.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	srv.ApplyMiddleware(httpMetrics)

	global := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.DefaultPerMinute,
		SkipPaths:         append([]string{TranscribePath}, endpoint.Paths()...),
	})
	transcribe := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.TranscribePerMinute,
	})
	srv.AddCloser(global)
	srv.AddCloser(transcribe)

	engine := srv.GinEngine()
	engine.Use(global.Handler())

	srv.RegisterDefaultEndpoints(cfg.Name, checker, func() map[string]any {
		rules := svc.Processor.Rules()
		return map[string]any{
			"provider":      cfg.Provider.Name,
			"max_items":     rules.MaxItems,
			"max_file_size": util.FormatSize(rules.MaxFileSize),
			"languages":     rules.Languages,
		}
	})

	api.NewHandler(svc.Processor, svc.Workspace, svc.Store, log).Register(engine, transcribe.Handler())
	return srv, nil
}
