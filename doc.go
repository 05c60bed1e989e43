// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cascade runs applications configured from layered resources.
//
// Resources such as config files, translation tables and views are
// searched for across an ordered list of filesystem layers, e.g. an
// application directory, then module directories, then a system
// directory. A resource found in a higher layer shadows the same
// resource in lower layers, except for config and translation files
// which are merged across every layer.
//
// The packages are built around three abstractions:
//
//   - filesystem.Cascade resolves relative resource paths across layers
//   - config.Repository merges named config groups from ordered sources
//   - App is the entry point for user specific code
//
// # Basic Usage
//
// Describe the layers and the config sources:
//
//	fs := filesystem.New(filesystem.Layers("app", "modules/auth", "system"))
//
//	repo := config.NewRepository()
//	repo.Attach(config.NewFileReader(fs))
//	repo.Attach(config.FromEnv("APP"))
//
// Build and run an App from the "app" config group:
//
//	type Config struct {
//	    Addr string `config:"addr"`
//	}
//
//	builder := cascade.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (cascade.App, error) {
//	    return newServer(cfg.Addr), nil
//	})
//
//	err := cascade.Run(ctx, builder, repo, "app")
//
// Wrap the App with Recover, WithSignalNotifications, WithLifecycleHooks
// or WithConfigReload to add panic recovery, graceful shutdown, hooks and
// live reloading of config files.
package cascade
