// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/z5labs/cascade/internal/noop"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoSourcesAttached is returned by Load when the Repository has no sources.
var ErrNoSourcesAttached = errors.New("no configuration sources attached")

// ErrNoWritableSource is returned by Write and Copy when none of the
// attached sources implement Writer.
var ErrNoWritableSource = errors.New("no writable configuration source attached")

// InvalidGroupNameError occurs when a group name is empty or is not made
// of "/" separated segments of letters, digits, "_" and "-".
type InvalidGroupNameError struct {
	Name string
}

// Error implements the error interface.
func (e InvalidGroupNameError) Error() string {
	if e.Name == "" {
		return "need to specify a config group"
	}
	return fmt.Sprintf("invalid config group name: %q", e.Name)
}

// SourceLoadError wraps the failure of a single Source.
type SourceLoadError struct {
	Group string
	Cause error
}

// Error implements the error interface.
func (e SourceLoadError) Error() string {
	return fmt.Sprintf("failed to load config group %s: %s", e.Group, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e SourceLoadError) Unwrap() error {
	return e.Cause
}

// SourceWriteError wraps the failure of a single Writer.
type SourceWriteError struct {
	Group string
	Cause error
}

// Error implements the error interface.
func (e SourceWriteError) Error() string {
	return fmt.Sprintf("failed to write config group %s: %s", e.Group, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e SourceWriteError) Unwrap() error {
	return e.Cause
}

var groupNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+(/[A-Za-z0-9_\-]+)*$`)

// ValidateGroupName returns an InvalidGroupNameError if name can not be
// used as a group name.
func ValidateGroupName(name string) error {
	if !groupNamePattern.MatchString(name) {
		return InvalidGroupNameError{Name: name}
	}
	return nil
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// Sources sets the initial sources, highest precedence first.
func Sources(srcs ...Source) RepositoryOption {
	return func(r *Repository) {
		r.sources = append([]Source(nil), srcs...)
	}
}

// LogHandler sets the slog.Handler the Repository logs with.
func LogHandler(h slog.Handler) RepositoryOption {
	return func(r *Repository) {
		r.log = noop.Logger(h)
	}
}

// Repository merges config groups from an ordered list of sources.
//
// Directives from sources high in the list override ones from those below
// them, in the same way files cascade across filesystem layers. Merged
// groups are cached until the list of sources changes. A Repository is
// safe for concurrent use.
type Repository struct {
	log *slog.Logger

	mu      sync.RWMutex
	sources []Source
	groups  map[string]*Group
	gen     uint64

	flight singleflight.Group
}

// NewRepository returns a fully initialized Repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		log:    noop.Logger(nil),
		groups: make(map[string]*Group),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach adds src as the highest precedence source.
func (r *Repository) Attach(src Source) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = append([]Source{src}, r.sources...)
	r.invalidateLocked()
	return r
}

// AttachLast adds src as the lowest precedence source, to be used only
// for what no other source provides.
func (r *Repository) AttachLast(src Source) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = append(r.sources, src)
	r.invalidateLocked()
	return r
}

// Detach removes the first attached source identical to src.
func (r *Repository) Detach(src Source) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sources {
		if !sameSource(s, src) {
			continue
		}
		r.sources = append(r.sources[:i:i], r.sources[i+1:]...)
		r.invalidateLocked()
		break
	}
	return r
}

func sameSource(a, b Source) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// Sources returns the attached sources, highest precedence first.
func (r *Repository) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

// Invalidate drops every cached group.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
}

func (r *Repository) invalidateLocked() {
	r.gen++
	r.groups = make(map[string]*Group)
}

// Load returns the group merged from every attached source. Sources are
// merged from the lowest to the highest precedence so higher sources
// override lower ones. The result is cached until a source is attached
// or detached, the group is written or the cache is invalidated.
func (r *Repository) Load(ctx context.Context, group string) (*Group, error) {
	r.mu.RLock()
	if len(r.sources) == 0 {
		r.mu.RUnlock()
		return nil, ErrNoSourcesAttached
	}
	r.mu.RUnlock()

	err := ValidateGroupName(group)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if g, ok := r.groups[group]; ok {
		r.mu.RUnlock()
		return g, nil
	}
	gen := r.gen
	srcs := append([]Source(nil), r.sources...)
	r.mu.RUnlock()

	// concurrent loads of a group share one merge, keyed by generation so
	// a merge started before the sources changed is never shared after.
	// The merge outlives any single caller giving up on it.
	mergeCtx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(strconv.FormatUint(gen, 10)+":"+group, func() (any, error) {
		return r.merge(mergeCtx, gen, group, srcs)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Group), nil
	}
}

func (r *Repository) merge(ctx context.Context, gen uint64, group string, srcs []Source) (_ *Group, err error) {
	spanCtx, span := otel.Tracer("config").Start(ctx, "Repository.merge", trace.WithAttributes(
		attribute.String("config.group", group),
		attribute.Int("config.sources", len(srcs)),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to merge config group")
	}()

	cfg := make(Map)
	for i := len(srcs) - 1; i >= 0; i-- {
		m, err := srcs[i].Load(spanCtx, group)
		if err != nil {
			return nil, SourceLoadError{Group: group, Cause: err}
		}
		if len(m) == 0 {
			continue
		}
		cfg = Merge(cfg, m)
	}

	g := &Group{name: group, cfg: cfg}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		// sources changed while merging, hand out the result uncached
		return g, nil
	}
	if cached, ok := r.groups[group]; ok {
		return cached, nil
	}
	r.groups[group] = g

	r.log.DebugContext(spanCtx, "merged config group", slog.String("group", group), slog.Int("sources", len(srcs)))
	return g, nil
}

// Lookup loads a group, or a value nested inside of it when name
// continues with a dotted path after the group name.
//
//	// *Group
//	v, err := r.Lookup(ctx, "database")
//
//	// the value of "primary.host" in the "database" group, nil if unset
//	v, err := r.Lookup(ctx, "database.primary.host")
func (r *Repository) Lookup(ctx context.Context, name string) (any, error) {
	group, path, hasPath := strings.Cut(name, ".")

	g, err := r.Load(ctx, group)
	if err != nil {
		return nil, err
	}
	if !hasPath {
		return g, nil
	}
	return g.Get(path, nil), nil
}

// Preload loads every given group concurrently.
func (r *Repository) Preload(ctx context.Context, groups ...string) error {
	eg, egctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		eg.Go(func() error {
			_, err := r.Load(egctx, group)
			return err
		})
	}
	return eg.Wait()
}

// Copy loads a group and writes the fully merged result to every
// writable source.
func (r *Repository) Copy(ctx context.Context, group string) error {
	g, err := r.Load(ctx, group)
	if err != nil {
		return err
	}
	return r.Write(ctx, group, g.AsMap())
}

// Write writes cfg to every attached source which implements Writer,
// highest precedence first. Sources which can not write are skipped. A
// failing writer does not stop the others, every failure is returned
// joined together. The group is dropped from the cache.
func (r *Repository) Write(ctx context.Context, group string, cfg Map) (err error) {
	err = ValidateGroupName(group)
	if err != nil {
		return err
	}

	spanCtx, span := otel.Tracer("config").Start(ctx, "Repository.Write", trace.WithAttributes(
		attribute.String("config.group", group),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write config group")
	}()

	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.gen++
		delete(r.groups, group)
	}()

	var errs []error
	writers := 0
	for _, src := range r.Sources() {
		w, ok := src.(Writer)
		if !ok {
			continue
		}
		writers++

		err := w.Write(spanCtx, group, cfg.Clone())
		if err != nil {
			errs = append(errs, SourceWriteError{Group: group, Cause: err})
		}
	}
	if writers == 0 {
		return ErrNoWritableSource
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.log.InfoContext(spanCtx, "wrote config group", slog.String("group", group), slog.Int("writers", writers))
	return nil
}
