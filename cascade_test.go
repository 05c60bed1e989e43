// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/z5labs/cascade/config"

	"github.com/stretchr/testify/assert"
)

type serverConfig struct {
	Addr    string        `config:"addr"`
	Timeout time.Duration `config:"timeout"`
}

func TestRun(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the config group fails to load", func(t *testing.T) {
			repo := config.NewRepository()

			builder := AppBuilderFunc[serverConfig](func(ctx context.Context, cfg serverConfig) (App, error) {
				return nil, nil
			})

			err := Run(context.Background(), builder, repo, "server")

			var clerr ConfigLoadError
			if !assert.ErrorAs(t, err, &clerr) {
				return
			}
			if !assert.ErrorIs(t, err, config.ErrNoSourcesAttached) {
				return
			}
			if !assert.NotEmpty(t, clerr.Error()) {
				return
			}
		})

		t.Run("if the config group can not be unmarshalled", func(t *testing.T) {
			repo := config.NewRepository(config.Sources(config.NewMemory(map[string]config.Map{
				"server": {"timeout": "not a duration"},
			})))

			builder := AppBuilderFunc[serverConfig](func(ctx context.Context, cfg serverConfig) (App, error) {
				return nil, nil
			})

			err := Run(context.Background(), builder, repo, "server")

			var cuerr ConfigUnmarshalError
			if !assert.ErrorAs(t, err, &cuerr) {
				return
			}
			if !assert.Equal(t, "server", cuerr.Group) {
				return
			}
			if !assert.NotEmpty(t, cuerr.Error()) {
				return
			}
		})

		t.Run("if the app fails to build", func(t *testing.T) {
			repo := config.NewRepository(config.Sources(config.NewMemory(nil)))

			buildErr := errors.New("failed to build")
			builder := AppBuilderFunc[serverConfig](func(ctx context.Context, cfg serverConfig) (App, error) {
				return nil, buildErr
			})

			err := Run(context.Background(), builder, repo, "server")

			var aberr AppBuildError
			if !assert.ErrorAs(t, err, &aberr) {
				return
			}
			if !assert.Equal(t, buildErr, aberr.Cause) {
				return
			}
			if !assert.NotEmpty(t, aberr.Error()) {
				return
			}
		})

		t.Run("if the app fails to run", func(t *testing.T) {
			repo := config.NewRepository(config.Sources(config.NewMemory(nil)))

			runErr := errors.New("failed to run")
			builder := AppBuilderFunc[serverConfig](func(ctx context.Context, cfg serverConfig) (App, error) {
				app := AppFunc(func(ctx context.Context) error {
					return runErr
				})
				return app, nil
			})

			err := Run(context.Background(), builder, repo, "server")

			var arerr AppRunError
			if !assert.ErrorAs(t, err, &arerr) {
				return
			}
			if !assert.Equal(t, runErr, arerr.Cause) {
				return
			}
			if !assert.NotEmpty(t, arerr.Error()) {
				return
			}
		})
	})

	t.Run("will build the app from the merged config group", func(t *testing.T) {
		defaults := config.NewMemory(map[string]config.Map{
			"server": {"addr": ":8080", "timeout": "5s"},
		})
		overrides := config.NewMemory(map[string]config.Map{
			"server": {"addr": ":9090"},
		})
		repo := config.NewRepository(config.Sources(overrides, defaults))

		var got serverConfig
		builder := AppBuilderFunc[serverConfig](func(ctx context.Context, cfg serverConfig) (App, error) {
			got = cfg
			return AppFunc(func(ctx context.Context) error {
				return nil
			}), nil
		})

		err := Run(context.Background(), builder, repo, "server")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, serverConfig{Addr: ":9090", Timeout: 5 * time.Second}, got) {
			return
		}
	})
}
