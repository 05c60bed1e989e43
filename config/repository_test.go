// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	cfg   Map
	loads atomic.Int64
}

func (s *countingSource) Load(_ context.Context, group string) (Map, error) {
	s.loads.Add(1)
	return s.cfg.Clone(), nil
}

// blockingSource reads its groups up front and then holds every load
// until release is closed.
type blockingSource struct {
	*Memory

	started chan struct{}
	release chan struct{}
	once    sync.Once
	loads   atomic.Int64
}

func newBlockingSource(groups map[string]Map) *blockingSource {
	return &blockingSource{
		Memory:  NewMemory(groups),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) Load(ctx context.Context, group string) (Map, error) {
	s.loads.Add(1)
	m, err := s.Memory.Load(ctx, group)
	s.once.Do(func() { close(s.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
		return m, err
	}
}

type writeOnlyFailure struct {
	Memory
}

func (w *writeOnlyFailure) Write(context.Context, string, Map) error {
	return errors.New("disk full")
}

func TestRepository_Load(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if no sources are attached", func(t *testing.T) {
			r := NewRepository()

			_, err := r.Load(context.Background(), "app")
			if !assert.ErrorIs(t, err, ErrNoSourcesAttached) {
				return
			}
		})

		t.Run("if the group name is invalid", func(t *testing.T) {
			names := []string{"", "app.db", "../etc", "a//b", "/app", "app name"}
			for _, name := range names {
				t.Run(name, func(t *testing.T) {
					r := NewRepository(Sources(NewMemory(nil)))

					_, err := r.Load(context.Background(), name)

					var igne InvalidGroupNameError
					if !assert.ErrorAs(t, err, &igne) {
						return
					}
					if !assert.Equal(t, name, igne.Name) {
						return
					}
					if !assert.NotEmpty(t, igne.Error()) {
						return
					}
				})
			}
		})

		t.Run("if a source fails to load", func(t *testing.T) {
			loadErr := errors.New("failed to load")
			r := NewRepository(Sources(SourceFunc(func(context.Context, string) (Map, error) {
				return nil, loadErr
			})))

			_, err := r.Load(context.Background(), "app")
			if !assert.ErrorIs(t, err, loadErr) {
				return
			}

			var sle SourceLoadError
			if !assert.ErrorAs(t, err, &sle) {
				return
			}
			if !assert.Equal(t, "app", sle.Group) {
				return
			}
		})
	})

	t.Run("will let earlier attached sources override later ones", func(t *testing.T) {
		a := NewMemory(map[string]Map{"app": {"x": 1}})
		b := NewMemory(map[string]Map{"app": {"x": 2, "y": 2}})
		c := NewMemory(map[string]Map{"app": {"y": 3, "z": 3}})

		r := NewRepository()
		r.Attach(c)
		r.Attach(b)
		r.Attach(a)

		g, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"x": 1, "y": 2, "z": 3}, g.AsMap()) {
			return
		}
	})

	t.Run("will only use last attached sources for missing values", func(t *testing.T) {
		r := NewRepository(Sources(NewMemory(map[string]Map{"app": {"port": 9090}})))
		r.AttachLast(NewMemory(map[string]Map{"app": {"port": 8080, "host": "localhost"}}))

		g, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"port": 9090, "host": "localhost"}, g.AsMap()) {
			return
		}
	})

	t.Run("will return an empty group if no source has it", func(t *testing.T) {
		r := NewRepository(Sources(NewMemory(nil)))

		g, err := r.Load(context.Background(), "services/billing")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "services/billing", g.Name()) {
			return
		}
		if !assert.Empty(t, g.AsMap()) {
			return
		}
	})

	t.Run("will cache merged groups", func(t *testing.T) {
		src := &countingSource{cfg: Map{"a": 1}}
		r := NewRepository(Sources(src))

		g1, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		g2, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Same(t, g1, g2) {
			return
		}
		if !assert.Equal(t, int64(1), src.loads.Load()) {
			return
		}
	})

	t.Run("will collapse concurrent loads of the same group", func(t *testing.T) {
		src := &countingSource{cfg: Map{"a": 1}}
		r := NewRepository(Sources(src))

		var wg sync.WaitGroup
		groups := make([]*Group, 10)
		for i := range groups {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				g, err := r.Load(context.Background(), "app")
				require.NoError(t, err)
				groups[i] = g
			}(i)
		}
		wg.Wait()

		for _, g := range groups {
			if !assert.Same(t, groups[0], g) {
				return
			}
		}
	})

	t.Run("will return early if its context is cancelled", func(t *testing.T) {
		src := newBlockingSource(map[string]Map{"app": {"a": 1}})
		defer close(src.release)
		r := NewRepository(Sources(src))

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			_, err := r.Load(ctx, "app")
			errs <- err
		}()

		<-src.started
		cancel()

		err := <-errs
		if !assert.ErrorIs(t, err, context.Canceled) {
			return
		}
	})

	t.Run("will keep merging for other callers after one gives up", func(t *testing.T) {
		src := newBlockingSource(map[string]Map{"app": {"a": 1}})
		r := NewRepository(Sources(src))

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			_, err := r.Load(ctx, "app")
			errs <- err
		}()

		<-src.started
		cancel()
		if !assert.ErrorIs(t, <-errs, context.Canceled) {
			close(src.release)
			return
		}

		type result struct {
			g   *Group
			err error
		}
		results := make(chan result, 1)
		go func() {
			g, err := r.Load(context.Background(), "app")
			results <- result{g: g, err: err}
		}()
		close(src.release)

		res := <-results
		if !assert.Nil(t, res.err) {
			return
		}
		if !assert.Equal(t, 1, res.g.Get("a", nil)) {
			return
		}
		if !assert.Equal(t, int64(1), src.loads.Load()) {
			return
		}
	})
}

func TestRepository_Attach(t *testing.T) {
	t.Run("will invalidate cached groups", func(t *testing.T) {
		r := NewRepository(Sources(NewMemory(map[string]Map{"app": {"x": 1}})))

		g, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, 1, g.Get("x", nil)) {
			return
		}

		r.Attach(NewMemory(map[string]Map{"app": {"x": 2}}))

		g, err = r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, 2, g.Get("x", nil)) {
			return
		}
	})
}

func TestRepository_Detach(t *testing.T) {
	t.Run("will invalidate cached groups", func(t *testing.T) {
		base := NewMemory(map[string]Map{"app": {"x": 1}})
		override := NewMemory(map[string]Map{"app": {"x": 2}})
		r := NewRepository(Sources(override, base))

		g, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, 2, g.Get("x", nil)) {
			return
		}

		r.Detach(override)

		g, err = r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, 1, g.Get("x", nil)) {
			return
		}
		if !assert.Len(t, r.Sources(), 1) {
			return
		}
	})

	t.Run("will only remove the identical source", func(t *testing.T) {
		a := NewMemory(nil)
		b := NewMemory(nil)
		r := NewRepository(Sources(a, b))

		r.Detach(NewMemory(nil))
		if !assert.Len(t, r.Sources(), 2) {
			return
		}

		r.Detach(b)
		srcs := r.Sources()
		if !assert.Len(t, srcs, 1) {
			return
		}
		if !assert.Same(t, a, srcs[0]) {
			return
		}
	})

	t.Run("will not panic on uncomparable sources", func(t *testing.T) {
		f := SourceFunc(func(context.Context, string) (Map, error) {
			return nil, nil
		})
		r := NewRepository(Sources(f))

		r.Detach(f)
		if !assert.Len(t, r.Sources(), 1) {
			return
		}
	})
}

func TestRepository_Lookup(t *testing.T) {
	r := NewRepository(Sources(NewMemory(map[string]Map{
		"database": {"primary": Map{"host": "db.internal"}},
	})))

	t.Run("will return the group if there is no path", func(t *testing.T) {
		v, err := r.Lookup(context.Background(), "database")
		if !assert.Nil(t, err) {
			return
		}

		g, ok := v.(*Group)
		if !assert.True(t, ok) {
			return
		}
		if !assert.Equal(t, "database", g.Name()) {
			return
		}
	})

	t.Run("will return the value at the path", func(t *testing.T) {
		v, err := r.Lookup(context.Background(), "database.primary.host")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "db.internal", v) {
			return
		}
	})

	t.Run("will return nil if the path is not set", func(t *testing.T) {
		v, err := r.Lookup(context.Background(), "database.replica.host")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Nil(t, v) {
			return
		}
	})
}

func TestRepository_Write(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if no source can write", func(t *testing.T) {
			r := NewRepository(Sources(FromEnv("TEST")))

			err := r.Write(context.Background(), "app", Map{"a": 1})
			if !assert.ErrorIs(t, err, ErrNoWritableSource) {
				return
			}
		})

		t.Run("if a writer fails", func(t *testing.T) {
			mem := NewMemory(nil)
			r := NewRepository(Sources(&writeOnlyFailure{}, mem))

			err := r.Write(context.Background(), "app", Map{"a": 1})

			var swe SourceWriteError
			if !assert.ErrorAs(t, err, &swe) {
				return
			}

			m, err := mem.Load(context.Background(), "app")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, Map{"a": 1}, m) {
				return
			}
		})
	})

	t.Run("will skip sources which can not write", func(t *testing.T) {
		mem := NewMemory(nil)
		r := NewRepository(Sources(FromEnv("TEST"), mem))

		err := r.Write(context.Background(), "app", Map{"a": 1})
		if !assert.Nil(t, err) {
			return
		}

		m, err := mem.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"a": 1}, m) {
			return
		}
	})

	t.Run("will drop the cached group", func(t *testing.T) {
		mem := NewMemory(map[string]Map{"app": {"a": 1}})
		r := NewRepository(Sources(mem))

		_, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}

		err = r.Write(context.Background(), "app", Map{"a": 2})
		if !assert.Nil(t, err) {
			return
		}

		g, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, 2, g.Get("a", nil)) {
			return
		}
	})
	t.Run("will not cache a merge which started before the write", func(t *testing.T) {
		src := newBlockingSource(map[string]Map{"core": {"v": "old"}})
		r := NewRepository(Sources(src))

		done := make(chan error, 1)
		go func() {
			_, err := r.Load(context.Background(), "core")
			done <- err
		}()

		<-src.started
		err := r.Write(context.Background(), "core", Map{"v": "new"})
		close(src.release)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Nil(t, <-done) {
			return
		}

		g, err := r.Load(context.Background(), "core")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "new", g.Get("v", nil)) {
			return
		}
	})
}

func TestRepository_Invalidate(t *testing.T) {
	t.Run("will reload every group from its sources", func(t *testing.T) {
		src := &countingSource{cfg: Map{"a": 1}}
		r := NewRepository(Sources(src))

		err := r.Preload(context.Background(), "app", "db")
		if !assert.Nil(t, err) {
			return
		}

		r.Invalidate()

		for _, group := range []string{"app", "db"} {
			_, err = r.Load(context.Background(), group)
			if !assert.Nil(t, err) {
				return
			}
		}
		if !assert.Equal(t, int64(4), src.loads.Load()) {
			return
		}
	})
}

func TestRepository_Copy(t *testing.T) {
	t.Run("will write the merged group to every writer", func(t *testing.T) {
		defaults := NewMemory(map[string]Map{"app": {"port": 8080, "host": "localhost"}})
		overrides := FromEnv("TEST")
		overrides.environ = func() []string {
			return []string{"TEST_APP__PORT=9090"}
		}
		r := NewRepository(Sources(overrides, defaults))

		err := r.Copy(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}

		m, err := defaults.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"port": "9090", "host": "localhost"}, m) {
			return
		}
	})
}

func TestRepository_Preload(t *testing.T) {
	t.Run("will cache every group", func(t *testing.T) {
		src := &countingSource{cfg: Map{"a": 1}}
		r := NewRepository(Sources(src))

		err := r.Preload(context.Background(), "app", "database", "cache")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, int64(3), src.loads.Load()) {
			return
		}

		_, err = r.Load(context.Background(), "database")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, int64(3), src.loads.Load()) {
			return
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if any group fails to load", func(t *testing.T) {
			r := NewRepository(Sources(NewMemory(nil)))

			err := r.Preload(context.Background(), "app", "bad.name")

			var igne InvalidGroupNameError
			if !assert.ErrorAs(t, err, &igne) {
				return
			}
		})
	})
}
