// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/config/httpsource"
	"github.com/z5labs/cascade/filesystem"
	"github.com/z5labs/cascade/i18n"
	"github.com/z5labs/cascade/internal/otelslog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// env holds everything built from the persistent flags.
type env struct {
	log  *slog.Logger
	fs   *filesystem.Cascade
	repo *config.Repository
	i18n *i18n.Reader

	shutdown func(context.Context) error
}

// execute runs the cascade command with args. Whatever the command set
// up, e.g. the trace exporter, is shut down before returning even when
// the command fails.
func execute(ctx context.Context, fs afero.Fs, stdout, stderr io.Writer, args ...string) (err error) {
	e := &env{}
	cmd := newRootCommand(fs, e)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	defer func() {
		err = errors.Join(err, e.close(ctx))
	}()
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(fs afero.Fs, e *env) *cobra.Command {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix("CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cascade",
		Short:         "Resolve resources and config across filesystem layers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := v.GetString("config")
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				err := v.ReadInConfig()
				if err != nil {
					return err
				}
			}
			return e.init(cmd, v, fs)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringSlice("layer", nil, "layer root, highest precedence first (repeatable)")
	flags.String("ext", filesystem.DefaultExt, "default file extension")
	flags.Bool("cache", true, "cache resolved paths")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("trace", false, "print trace spans to stderr")
	flags.String("config", "", "read flag values from this file")
	flags.String("env-prefix", "", "attach a config source reading PREFIX_GROUP__KEY environment variables")
	flags.String("remote", "", "attach a config source fetching groups below this URL")
	flags.String("remote-format", "json", "format of remote config groups")
	bindFlags(v, flags)

	cmd.AddCommand(
		newFindCommand(e),
		newDirCommand(e),
		newLsCommand(e),
		newConfigCommand(e),
		newI18nCommand(e),
	)
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		v.BindPFlag(f.Name, f)
	})
}

// stringSlice reads a list setting. Flags and config files yield a list
// already while environment variables are a single comma separated string.
func stringSlice(v *viper.Viper, key string) []string {
	s, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (e *env) close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	shutdown := e.shutdown
	e.shutdown = nil
	return shutdown(ctx)
}

func (e *env) init(cmd *cobra.Command, v *viper.Viper, fs afero.Fs) error {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(v.GetString("log-level")))
	if err != nil {
		return err
	}

	h := otelslog.NewHandler(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: lvl,
	}))
	e.log = slog.New(h)

	if v.GetBool("trace") {
		e.shutdown, err = initTracing(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	e.fs = filesystem.New(
		filesystem.FS(fs),
		filesystem.Layers(stringSlice(v, "layer")...),
		filesystem.Caching(v.GetBool("cache")),
		filesystem.DefaultExtension(v.GetString("ext")),
		filesystem.LogHandler(h),
	)

	e.repo = config.NewRepository(
		config.LogHandler(h),
		config.Sources(config.NewFileWriter(e.fs)),
	)
	if prefix := v.GetString("env-prefix"); prefix != "" {
		e.repo.Attach(config.FromEnv(prefix))
	}
	if remote := v.GetString("remote"); remote != "" {
		src, err := httpsource.New(
			httpsource.BaseURL(remote),
			httpsource.Format(v.GetString("remote-format")),
			httpsource.Logger(newZapLogger(lvl)),
		)
		if err != nil {
			return err
		}
		e.repo.AttachLast(src)
	}

	e.i18n = i18n.NewReader(e.fs, i18n.LogHandler(h))

	e.log.DebugContext(cmd.Context(), "initialized layers", slog.Any("layers", e.fs.Layers()))
	return nil
}

func initTracing(w io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newZapLogger(lvl slog.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	switch {
	case lvl <= slog.LevelDebug:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case lvl <= slog.LevelInfo:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case lvl <= slog.LevelWarn:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func printYaml(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	err := enc.Encode(v)
	if err != nil {
		return err
	}
	return enc.Close()
}
