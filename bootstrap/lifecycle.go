package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/whisperbatch/logger"
)

// Run starts the service and blocks until SIGINT, SIGTERM or ctx ends,
// then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("service ready")
		<-ctx.Done()
		return nil
	})
}

// RunTask starts the service, runs task and shuts down when it returns.
// The task context ends on SIGINT or SIGTERM. Task and shutdown errors
// are joined.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		a.release()
		return err
	}

	taskErr := task(ctx)
	if ctx.Err() != nil {
		a.Logger.Info("shutdown requested")
	}
	return errors.Join(taskErr, a.shutdown())
}

func (a *App[C]) start(ctx context.Context) error {
	begin := time.Now()
	a.Logger.Info("starting", logger.Fields("name", a.Name(), "components", len(a.Components.All())))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	if err := a.runHooks(ctx, PhaseStarted); err != nil {
		return err
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check failed", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := a.runHooks(ctx, PhaseReady); err != nil {
		return err
	}

	a.Summary.SetStartupDuration(time.Since(begin))
	a.Summary.Display(ctx, a.Components)
	return nil
}

// release stops whatever started before a startup failure.
func (a *App[C]) release() {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Warn("cleanup after failed start", logger.Fields(logger.FieldError, err.Error()))
	}
}

func (a *App[C]) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()

	a.Logger.Info("shutting down", logger.Fields("timeout", a.grace.String()))
	hookErr := a.runHooks(ctx, PhaseStopping)
	stopErr := a.Components.StopAll(ctx)
	if err := errors.Join(hookErr, stopErr); err != nil {
		a.Logger.Error("shutdown incomplete", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}
