// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/z5labs/cascade/internal/try"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotRegularFile is returned, wrapped in a FileLoadError, when Load
// is given the path of a directory or other non regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// FileLoadError occurs when a resolved path can not be read or decoded.
type FileLoadError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e FileLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Path, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e FileLoadError) Unwrap() error {
	return e.Cause
}

// FileWriteError occurs when contents can not be written to a path.
type FileWriteError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %s", e.Path, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e FileWriteError) Unwrap() error {
	return e.Cause
}

// Load reads the file at path and returns the value it describes. The
// file is decoded with the codec registered for its extension, after
// being rendered as a text/template when RenderTemplates is enabled.
func (c *Cascade) Load(ctx context.Context, path string) (v any, err error) {
	spanCtx, span := otel.Tracer("filesystem").Start(ctx, "Cascade.Load", trace.WithAttributes(
		attribute.String("file.path", path),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load file")
	}()

	b, err := c.read(path)
	if err != nil {
		return nil, FileLoadError{Path: path, Cause: err}
	}

	if c.tmpl != nil {
		b, err = render(filepath.Base(path), b, c.tmpl)
		if err != nil {
			return nil, FileLoadError{Path: path, Cause: err}
		}
	}

	v, err = c.codecs.Decode(filepath.Ext(path), b)
	if err != nil {
		return nil, FileLoadError{Path: path, Cause: err}
	}

	c.log.DebugContext(spanCtx, "loaded file", slog.String("path", path))
	return v, nil
}

func (c *Cascade) read(path string) (_ []byte, err error) {
	fi, err := c.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, f)

	return io.ReadAll(f)
}

// Save writes contents to path, replacing anything already there.
func (c *Cascade) Save(ctx context.Context, path string, contents []byte) error {
	spanCtx, span := otel.Tracer("filesystem").Start(ctx, "Cascade.Save", trace.WithAttributes(
		attribute.String("file.path", path),
		attribute.Int("file.size", len(contents)),
	))
	defer span.End()

	err := afero.WriteFile(c.fs, path, contents, 0o644)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write file")
		return FileWriteError{Path: path, Cause: err}
	}

	c.log.InfoContext(spanCtx, "saved file", slog.String("path", path), slog.Int("size", len(contents)))
	return nil
}
