// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cascade

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/filesystem"
	"github.com/z5labs/cascade/internal/try"

	"golang.org/x/sync/errgroup"
)

// PanicError is returned by an App wrapped with Recover when it panics
// with a value which is not an error.
type PanicError = try.PanicError

// Recover will wrap the given App with panic recovery.
// A recovered panic is returned as a PanicError which
// unwraps to the panic value when it is an error.
func Recover(app App) App {
	return AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given App in an implementation
// that cancels the context.Context that's passed to app.Run if an os.Signal
// is received by the running process.
func WithSignalNotifications(app App, signals ...os.Signal) App {
	return AppFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// Concurrently returns an App which runs every app at the same time.
// The first failure cancels the others.
func Concurrently(apps ...App) App {
	return AppFunc(func(ctx context.Context) error {
		eg, egctx := errgroup.WithContext(ctx)
		for _, app := range apps {
			app := app
			eg.Go(func() (err error) {
				defer try.Recover(&err)
				return app.Run(egctx)
			})
		}
		return eg.Wait()
	})
}

// WithConfigReload runs app alongside a filesystem watcher. Whenever a
// file below one of the layers of fs changes, the path cache of fs and
// every cached group of repo are dropped so the next load sees the change.
func WithConfigReload(app App, fs *filesystem.Cascade, repo *config.Repository) App {
	return AppFunc(func(ctx context.Context) (err error) {
		w, err := filesystem.NewWatcher(fs, repo.Invalidate)
		if err != nil {
			return err
		}
		defer try.Close(&err, w)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		eg, egctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return w.Run(egctx)
		})
		eg.Go(func() error {
			defer cancel()
			return app.Run(egctx)
		})
		return eg.Wait()
	})
}

// LifecycleHook represents functionality that needs to be performed
// at a specific "time" relative to the execution of App.Run.
type LifecycleHook interface {
	Run(context.Context) error
}

// LifecycleHookFunc is a convenient helper type for implementing a LifecycleHook
// from just a regular func.
type LifecycleHookFunc func(context.Context) error

// Run implements the LifecycleHook interface.
func (f LifecycleHookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// ComposeLifecycleHooks combines multiple LifecycleHooks into a single hook.
// Each hook is called sequentially, even after a previous hook failed.
// Every failure is returned joined together.
func ComposeLifecycleHooks(hooks ...LifecycleHook) LifecycleHook {
	return LifecycleHookFunc(func(ctx context.Context) error {
		errs := make([]error, 0, len(hooks))
		for _, hook := range hooks {
			err := hook.Run(ctx)
			if err == nil {
				continue
			}
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// Lifecycle
type Lifecycle struct {
	// PreRun is executed before the App. The App is not run if it fails.
	PreRun LifecycleHook

	// PostRun is always executed regardless if the underlying App
	// returns an error or panics.
	PostRun LifecycleHook
}

// WithLifecycleHooks wraps a given App in an implementation
// that runs LifecycleHooks around the execution of app.Run.
func WithLifecycleHooks(app App, lifecycle Lifecycle) App {
	return AppFunc(func(ctx context.Context) (err error) {
		if lifecycle.PreRun != nil {
			err = lifecycle.PreRun.Run(ctx)
			if err != nil {
				return err
			}
		}

		defer runPostRunHook(ctx, lifecycle.PostRun, &err)

		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook LifecycleHook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(ctx)

	// errors.Join returns nil if both are nil
	*err = errors.Join(*err, hookErr)
}
