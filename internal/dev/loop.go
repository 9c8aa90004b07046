package dev

import (
	"context"

	"go.uber.org/zap"
)

// LoopOptions configures a Loop.
type LoopOptions struct {
	Watcher WatcherConfig

	// Rebuild regenerates everything derived from the watched files. It is
	// never called concurrently with itself.
	Rebuild func(context.Context) error

	// Reload is notified after each rebuild. Nil disables notifications.
	Reload *ReloadServer

	// FormatError renders a rebuild error for the browser overlay.
	// Default: err.Error()
	FormatError func(error) string

	Logger *zap.Logger
}

// Loop watches files and rebuilds on change. A failed rebuild shows an
// error overlay; the next good one clears it and reloads the page.
type Loop struct {
	opts    LoopOptions
	log     *zap.Logger
	watcher *Watcher
}

// NewLoop creates a dev loop.
func NewLoop(opts LoopOptions) *Loop {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FormatError == nil {
		opts.FormatError = func(err error) string { return err.Error() }
	}
	if opts.Watcher.Logger == nil {
		opts.Watcher.Logger = opts.Logger
	}
	return &Loop{
		opts:    opts,
		log:     opts.Logger,
		watcher: NewWatcher(opts.Watcher),
	}
}

// Run watches until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	failing := false
	rebuilder := NewRebuilder(ctx, l.opts.Rebuild, func(err error) {
		if err != nil {
			failing = true
			l.log.Error("rebuild failed", zap.Error(err))
			if l.opts.Reload != nil {
				l.opts.Reload.NotifyError(l.opts.FormatError(err))
			}
			return
		}
		l.log.Info("rebuilt")
		if l.opts.Reload == nil {
			return
		}
		if failing {
			failing = false
			l.opts.Reload.ClearError()
		}
		l.opts.Reload.NotifyReload()
	})

	l.watcher.OnChange(func(changes []Change) {
		fields := []zap.Field{zap.Int("changes", len(changes))}
		if len(changes) > 0 {
			fields = append(fields, zap.String("path", changes[0].Path), zap.Stringer("op", changes[0].Op))
		}
		l.log.Debug("files changed", fields...)
		rebuilder.Trigger()
	})

	err := l.watcher.Start(ctx)
	rebuilder.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop stops watching.
func (l *Loop) Stop() {
	l.watcher.Stop()
}
