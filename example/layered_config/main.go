// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/z5labs/cascade"
	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/filesystem"
	"github.com/z5labs/cascade/i18n"
)

type Config struct {
	Addr            string        `config:"addr"`
	ShutdownTimeout time.Duration `config:"shutdownTimeout"`
}

type greeter struct {
	log  *slog.Logger
	repo *config.Repository
	i18n *i18n.Reader
}

func (g *greeter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}

	cfg, err := g.repo.Load(r.Context(), "greeter")
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to load config", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var greetings []string
	for _, lang := range cfg.StringSlice("languages") {
		s, err := g.i18n.Translate(r.Context(), "greeting", lang, map[string]any{":name": name})
		if err != nil {
			g.log.ErrorContext(r.Context(), "failed to translate greeting", slog.String("lang", lang), slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		greetings = append(greetings, s)
	}
	w.Write([]byte(strings.Join(greetings, "\n") + "\n"))
}

func main() {
	logHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true})

	fs := filesystem.New(
		filesystem.Layers("app", "system"),
		filesystem.LogHandler(logHandler),
	)

	repo := config.NewRepository(config.LogHandler(logHandler))
	repo.Attach(config.NewFileReader(fs))
	repo.Attach(config.FromEnv("GREETER"))

	builder := cascade.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (cascade.App, error) {
		ls, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return nil, err
		}

		log := slog.New(logHandler)
		srv := &http.Server{
			Handler: &greeter{
				log:  log,
				repo: repo,
				i18n: i18n.NewReader(fs, i18n.LogHandler(logHandler)),
			},
		}

		var app cascade.App = cascade.AppFunc(func(ctx context.Context) error {
			go func() {
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.InfoContext(ctx, "listening", slog.String("addr", ls.Addr().String()))
			err := srv.Serve(ls)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})

		app = cascade.WithConfigReload(app, fs, repo)
		return cascade.Recover(cascade.WithSignalNotifications(app, os.Interrupt)), nil
	})

	err := cascade.Run(context.Background(), builder, repo, "greeter")
	if err != nil {
		slog.New(logHandler).Error("failed to run greeter", slog.Any("error", err))
		os.Exit(1)
	}
}
