// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"testing"

	"github.com/z5labs/cascade/filesystem"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayeredFs(t *testing.T, files map[string]string, layers ...string) *filesystem.Cascade {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, contents := range files {
		err := afero.WriteFile(fs, path, []byte(contents), 0o644)
		require.NoError(t, err)
	}
	return filesystem.New(filesystem.FS(fs), filesystem.Layers(layers...))
}

func TestFileReader_Load(t *testing.T) {
	t.Run("will merge every layer with higher layers winning", func(t *testing.T) {
		fs := newLayeredFs(t, map[string]string{
			"/a/config/app.yaml": "x: 1\n",
			"/b/config/app.yaml": "x: 2\ny: 2\n",
			"/c/config/app.yaml": "y: 3\nz: 3\n",
		}, "/a", "/b", "/c")

		r := NewFileReader(fs)

		cfg, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"x": 1, "y": 2, "z": 3}, cfg) {
			return
		}
	})

	t.Run("will union lists across layers", func(t *testing.T) {
		fs := newLayeredFs(t, map[string]string{
			"/app/config/family.yaml": "name: mary\nchildren: [jane]\n",
			"/sys/config/family.yaml": "name: john\nchildren: [fred, paul, sally, jane]\n",
		}, "/app", "/sys")

		cfg, err := NewFileReader(fs).Load(context.Background(), "family")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{
			"name":     "mary",
			"children": List{"fred", "paul", "sally", "jane"},
		}, cfg) {
			return
		}
	})

	t.Run("will return an empty map if no file exists", func(t *testing.T) {
		fs := newLayeredFs(t, nil, "/app")

		cfg, err := NewFileReader(fs).Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{}, cfg) {
			return
		}
	})

	t.Run("will read from a custom directory and extension", func(t *testing.T) {
		fs := newLayeredFs(t, map[string]string{
			"/app/settings/app.json": `{"a": {"b": true}}`,
		}, "/app")

		r := NewFileReader(fs, Directory("settings"), FileExtension("json"))

		cfg, err := r.Load(context.Background(), "app")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"a": Map{"b": true}}, cfg) {
			return
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a file is not a map", func(t *testing.T) {
			fs := newLayeredFs(t, map[string]string{
				"/app/config/app.yaml": "- a\n- b\n",
			}, "/app")

			_, err := NewFileReader(fs).Load(context.Background(), "app")

			var nme NotAMapError
			if !assert.ErrorAs(t, err, &nme) {
				return
			}
			if !assert.Equal(t, "/app/config/app.yaml", nme.Origin) {
				return
			}
		})

		t.Run("if a file can not be decoded", func(t *testing.T) {
			fs := newLayeredFs(t, map[string]string{
				"/app/config/app.yaml": "a: [",
			}, "/app")

			_, err := NewFileReader(fs).Load(context.Background(), "app")

			var fle filesystem.FileLoadError
			if !assert.ErrorAs(t, err, &fle) {
				return
			}
		})
	})
}

func TestFileWriter_Write(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if no layer has a file for the group", func(t *testing.T) {
			fs := newLayeredFs(t, nil, "/app")

			err := NewFileWriter(fs).Write(context.Background(), "app", Map{"a": 1})

			var nwfe NoWritableFileError
			if !assert.ErrorAs(t, err, &nwfe) {
				return
			}
			if !assert.Equal(t, "app", nwfe.Group) {
				return
			}
		})
	})

	t.Run("will overwrite the highest precedence file", func(t *testing.T) {
		fs := newLayeredFs(t, map[string]string{
			"/app/config/app.yaml": "port: 9090\n",
			"/sys/config/app.yaml": "port: 8080\nhost: localhost\n",
		}, "/app", "/sys")

		w := NewFileWriter(fs)
		err := w.Write(context.Background(), "app", Map{"port": 7070})
		if !assert.Nil(t, err) {
			return
		}

		v, err := fs.Load(context.Background(), "/app/config/app.yaml")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, map[string]any{"port": 7070}, v) {
			return
		}

		v, err = fs.Load(context.Background(), "/sys/config/app.yaml")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, map[string]any{"port": 8080, "host": "localhost"}, v) {
			return
		}
	})
}

func TestRepository_files(t *testing.T) {
	t.Run("will layer files, env and defaults", func(t *testing.T) {
		fs := newLayeredFs(t, map[string]string{
			"/app/config/database.yaml":          "primary:\n  host: db.internal\n",
			"/modules/auth/config/database.yaml": "primary:\n  port: 5432\n  host: auth.internal\n",
			"/system/config/database.yaml":       "pool: 10\n",
		}, "/app", "/modules/auth", "/system")

		env := FromEnv("APP")
		env.environ = func() []string {
			return []string{"APP_DATABASE__POOL=20"}
		}

		r := NewRepository()
		r.AttachLast(NewMemory(map[string]Map{"database": {"timeout": "5s"}}))
		r.Attach(NewFileWriter(fs))
		r.Attach(env)

		g, err := r.Load(context.Background(), "database")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{
			"primary": Map{"host": "db.internal", "port": 5432},
			"pool":    "20",
			"timeout": "5s",
		}, g.AsMap()) {
			return
		}

		err = r.Copy(context.Background(), "database")
		if !assert.Nil(t, err) {
			return
		}

		v, err := fs.Load(context.Background(), "/app/config/database.yaml")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, map[string]any{
			"primary": map[string]any{"host": "db.internal", "port": 5432},
			"pool":    "20",
			"timeout": "5s",
		}, v) {
			return
		}
	})
}
