package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds a whole shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// CloseFunc is a shutdown step. It should return once ctx is done.
type CloseFunc func(ctx context.Context) error

type namedStep struct {
	name string
	fn   CloseFunc
}

// ShutdownHandler runs registered shutdown steps in reverse order of
// registration, each at most once.
type ShutdownHandler struct {
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []namedStep
	done  bool
}

// NewShutdownHandler creates a new shutdown handler
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShutdownHandler{logger: logger.Named("shutdown"), timeout: timeout}
}

// Add registers a step. Steps added after Shutdown are ignored.
func (sh *ShutdownHandler) Add(name string, fn CloseFunc) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.done {
		return
	}
	sh.steps = append(sh.steps, namedStep{name: name, fn: fn})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a step that ignores the deadline.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, func(context.Context) error { return fn() })
}

// Shutdown runs every step, last registered first, and joins their errors.
// A step still running when the deadline passes is reported and skipped.
// Later calls return nil.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	if sh.done {
		sh.mu.Unlock()
		return nil
	}
	sh.done = true
	steps := sh.steps
	sh.steps = nil
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(steps)))

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := sh.run(ctx, steps[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		sh.logger.Warn("Shutdown completed with errors", zap.Int("errors", len(errs)))
	} else {
		sh.logger.Info("All services shutdown complete")
	}
	return errors.Join(errs...)
}

func (sh *ShutdownHandler) run(ctx context.Context, s namedStep) error {
	done := make(chan error, 1)
	go func() {
		done <- s.fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
		sh.logger.Debug("Service shutdown complete", zap.String("service", s.name))
		return nil
	case <-ctx.Done():
		sh.logger.Error("Shutdown timeout for service", zap.String("service", s.name))
		return fmt.Errorf("%s: %w", s.name, ctx.Err())
	}
}
