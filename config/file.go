// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/z5labs/cascade/codec"
	"github.com/z5labs/cascade/filesystem"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDirectory is the resource kind config files are looked up in.
const DefaultDirectory = "config"

// FileSystem is the part of a *filesystem.Cascade a FileReader needs.
type FileSystem interface {
	FindFile(kind, name string, opts ...filesystem.FindOption) filesystem.Result
	Load(ctx context.Context, path string) (any, error)
}

// FileSaver is the part of a *filesystem.Cascade a FileWriter needs.
type FileSaver interface {
	FileSystem
	Save(ctx context.Context, path string, contents []byte) error
}

type fileOptions struct {
	dir    string
	ext    []filesystem.FindOption
	codecs *codec.Registry
}

// FileOption configures a FileReader or FileWriter.
type FileOption func(*fileOptions)

// Directory sets the resource kind config files are looked up in.
func Directory(dir string) FileOption {
	return func(fo *fileOptions) {
		fo.dir = dir
	}
}

// FileExtension looks up config files with ext instead of the
// filesystem default.
func FileExtension(ext string) FileOption {
	return func(fo *fileOptions) {
		fo.ext = []filesystem.FindOption{filesystem.Extension(ext)}
	}
}

// Codecs sets the registry a FileWriter encodes with.
func Codecs(r *codec.Registry) FileOption {
	return func(fo *fileOptions) {
		fo.codecs = r
	}
}

func newFileOptions(opts []FileOption) fileOptions {
	fo := fileOptions{
		dir:    DefaultDirectory,
		codecs: codec.Default(),
	}
	for _, opt := range opts {
		opt(&fo)
	}
	return fo
}

// FileReader is a Source which reads groups from config files found in
// every filesystem layer. A group named "database" is read from every
// config/database.yaml, lower layers first, with each higher layer
// merged on top.
type FileReader struct {
	fs   FileSystem
	opts fileOptions
}

// NewFileReader returns a FileReader over fs.
func NewFileReader(fs FileSystem, opts ...FileOption) *FileReader {
	return &FileReader{
		fs:   fs,
		opts: newFileOptions(opts),
	}
}

// Load implements the Source interface.
func (r *FileReader) Load(ctx context.Context, group string) (_ Map, err error) {
	spanCtx, span := otel.Tracer("config").Start(ctx, "FileReader.Load", trace.WithAttributes(
		attribute.String("config.group", group),
		attribute.String("config.directory", r.opts.dir),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read config files")
	}()

	findOpts := append([]filesystem.FindOption{filesystem.All()}, r.opts.ext...)
	res := r.fs.FindFile(r.opts.dir, group, findOpts...)

	cfg := make(Map)
	for _, path := range res.Paths() {
		v, err := r.fs.Load(spanCtx, path)
		if err != nil {
			return nil, err
		}

		m, err := AsMap(path, v)
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, m)
	}
	span.SetAttributes(attribute.Int("config.files", len(res.Paths())))
	return cfg, nil
}

// NoWritableFileError occurs when a group is written but no layer holds
// a config file for it.
type NoWritableFileError struct {
	Group string
}

// Error implements the error interface.
func (e NoWritableFileError) Error() string {
	return fmt.Sprintf("no config file to write group %s to", e.Group)
}

// FileWriter is a FileReader which can also persist a group. Writes go
// to the existing config file of the highest precedence layer, encoded
// in the format of that file.
type FileWriter struct {
	*FileReader

	fs FileSaver
}

// NewFileWriter returns a FileWriter over fs.
func NewFileWriter(fs FileSaver, opts ...FileOption) *FileWriter {
	return &FileWriter{
		FileReader: NewFileReader(fs, opts...),
		fs:         fs,
	}
}

// Write implements the Writer interface.
func (w *FileWriter) Write(ctx context.Context, group string, cfg Map) error {
	res := w.fs.FindFile(w.opts.dir, group, w.opts.ext...)
	path, ok := res.Path()
	if !ok {
		return NoWritableFileError{Group: group}
	}

	b, err := w.opts.codecs.Encode(filepath.Ext(path), map[string]any(cfg))
	if err != nil {
		return err
	}
	return w.fs.Save(ctx, path, b)
}
