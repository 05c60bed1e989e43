// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config merges named config groups from an ordered set of sources.
//
// A group is a tree of Maps, Lists and scalars identified by a name such
// as "database" or "services/billing". Each Source attached to a
// Repository may provide a fragment of a group and the Repository merges
// every fragment, from the lowest to the highest precedence source, into
// a single Group.
//
// The merge rule is applied key by key. Two Maps merge recursively, two
// Lists are unioned and anything else is replaced by the value from the
// higher precedence source.
//
//	fs := filesystem.New(filesystem.Layers("app", "modules/auth", "system"))
//
//	repo := config.NewRepository()
//	repo.AttachLast(config.NewMemory(defaults))
//	repo.Attach(config.NewFileReader(fs))
//	repo.Attach(config.FromEnv("APP"))
//
//	host, err := repo.Lookup(ctx, "database.primary.host")
//
// Merged groups are cached until a source is attached or detached.
package config
