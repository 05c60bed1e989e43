// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package i18n reads translation tables from cascading filesystem layers.
package i18n

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/filesystem"
	"github.com/z5labs/cascade/internal/noop"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDirectory is the resource kind translation files are looked up in.
const DefaultDirectory = "i18n"

// InvalidLanguageError occurs when a language is not a "-" separated
// list of letters, digits and underscores, e.g. "es-mx".
type InvalidLanguageError struct {
	Lang string
}

// Error implements the error interface.
func (e InvalidLanguageError) Error() string {
	return fmt.Sprintf("invalid language: %q", e.Lang)
}

var langPattern = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)

// Option configures a Reader.
type Option func(*Reader)

// Directory sets the resource kind translation files are looked up in.
func Directory(dir string) Option {
	return func(r *Reader) {
		r.dir = dir
	}
}

// LogHandler sets the slog.Handler the Reader logs with.
func LogHandler(h slog.Handler) Option {
	return func(r *Reader) {
		r.log = noop.Logger(h)
	}
}

// Reader looks up translations for a language.
//
// The table for "es-mx" is built from every i18n/es/mx file, then every
// i18n/es file. Files of the same language level are merged across layers
// with higher layers winning and entries of a more specific level are
// never replaced by a less specific one. Tables are cached per language.
type Reader struct {
	fs  config.FileSystem
	dir string
	log *slog.Logger

	mu     sync.RWMutex
	tables map[string]config.Map
}

// NewReader returns a Reader over fs.
func NewReader(fs config.FileSystem, opts ...Option) *Reader {
	r := &Reader{
		fs:     fs,
		dir:    DefaultDirectory,
		log:    noop.Logger(nil),
		tables: make(map[string]config.Map),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the translation of text in lang. An exact entry for text
// is preferred, otherwise text is used as a dotted path into the table.
// A missing translation is nil.
func (r *Reader) Get(ctx context.Context, text, lang string) (any, error) {
	table, err := r.table(ctx, lang)
	if err != nil {
		return nil, err
	}
	if v, ok := table[text]; ok {
		return config.Normalize(v), nil
	}
	if v, ok := config.Path(table, text); ok {
		return config.Normalize(v), nil
	}
	return nil, nil
}

// Translate returns the translation of text in lang with params
// substituted, or text itself when it has no string translation.
// Param names are replaced verbatim, longest first.
//
//	// "Hello, John"
//	s, err := r.Translate(ctx, "greeting", "en", map[string]any{":name": "John"})
func (r *Reader) Translate(ctx context.Context, text, lang string, params map[string]any) (string, error) {
	v, err := r.Get(ctx, text, lang)
	if err != nil {
		return "", err
	}

	s, ok := v.(string)
	if !ok {
		s = text
	}
	if len(params) == 0 {
		return s, nil
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	oldnew := make([]string, 0, 2*len(names))
	for _, name := range names {
		oldnew = append(oldnew, name, fmt.Sprint(params[name]))
	}
	return strings.NewReplacer(oldnew...).Replace(s), nil
}

// ClearCache drops every cached translation table.
func (r *Reader) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]config.Map)
}

func (r *Reader) table(ctx context.Context, lang string) (config.Map, error) {
	lang = strings.ToLower(lang)
	if !langPattern.MatchString(lang) {
		return nil, InvalidLanguageError{Lang: lang}
	}

	r.mu.RLock()
	table, ok := r.tables[lang]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := r.load(ctx, lang)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.tables[lang]; ok {
		return cached, nil
	}
	r.tables[lang] = table
	return table, nil
}

func (r *Reader) load(ctx context.Context, lang string) (_ config.Map, err error) {
	spanCtx, span := otel.Tracer("i18n").Start(ctx, "Reader.load", trace.WithAttributes(
		attribute.String("i18n.lang", lang),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load translation table")
	}()

	table := make(config.Map)
	for parts := strings.Split(lang, "-"); len(parts) > 0; parts = parts[:len(parts)-1] {
		res := r.fs.FindFile(r.dir, path.Join(parts...), filesystem.All())

		level := make(config.Map)
		for _, p := range res.Paths() {
			v, err := r.fs.Load(spanCtx, p)
			if err != nil {
				return nil, err
			}

			m, err := config.AsMap(p, v)
			if err != nil {
				return nil, err
			}
			level = config.Merge(level, m)
		}

		for k, v := range level {
			if _, ok := table[k]; ok {
				continue
			}
			table[k] = v
		}
	}

	r.log.DebugContext(spanCtx, "loaded translation table", slog.String("lang", lang), slog.Int("entries", len(table)))
	return table, nil
}
