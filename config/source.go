// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"os"
	"strings"
	"sync"
)

// Source provides config fragments for named groups. A nil or empty Map
// means the source has nothing for the group, which is not an error.
type Source interface {
	Load(ctx context.Context, group string) (Map, error)
}

// Writer is implemented by sources which can also persist a group.
type Writer interface {
	Write(ctx context.Context, group string, cfg Map) error
}

// SourceFunc is a functional implementation of the Source interface.
type SourceFunc func(context.Context, string) (Map, error)

// Load implements the Source interface.
func (f SourceFunc) Load(ctx context.Context, group string) (Map, error) {
	return f(ctx, group)
}

// Memory is an in-memory Source and Writer. It is useful for defaults
// compiled into a binary and for tests.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]Map
}

// NewMemory returns a Memory source holding a copy of groups.
func NewMemory(groups map[string]Map) *Memory {
	m := &Memory{groups: make(map[string]Map, len(groups))}
	for name, cfg := range groups {
		m.groups[name] = cfg.Clone()
	}
	return m
}

// Load implements the Source interface.
func (m *Memory) Load(_ context.Context, group string) (Map, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.groups[group]
	if !ok {
		return nil, nil
	}
	return cfg.Clone(), nil
}

// Write implements the Writer interface.
func (m *Memory) Write(_ context.Context, group string, cfg Map) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groups[group] = cfg.Clone()
	return nil
}

// Env is a Source whose values are extracted from environment variables.
//
// A variable belongs to a group when it is named PREFIX_GROUP__KEY, where
// GROUP is the upper cased group name with "/" and "-" replaced by "_".
// Further "__" separators nest keys, so with the prefix "APP"
//
//	APP_CORE__DATABASE__HOST=db.internal
//
// sets "database.host" in the "core" group. Values are always strings.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which will apply its config from the
// environment variables available to the current process.
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

var envGroupReplacer = strings.NewReplacer("/", "_", "-", "_")

// Load implements the Source interface.
func (src Env) Load(_ context.Context, group string) (Map, error) {
	groupPrefix := strings.ToUpper(envGroupReplacer.Replace(group)) + "__"
	if src.prefix != "" {
		groupPrefix = strings.ToUpper(src.prefix) + "_" + groupPrefix
	}

	m := make(Map)
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(k, groupPrefix)
		if !ok || rest == "" {
			continue
		}

		path := strings.ToLower(strings.ReplaceAll(rest, "__", "."))
		err := SetPath(m, path, v)
		if err != nil {
			return nil, err
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
