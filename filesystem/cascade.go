// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package filesystem provides a cascading filesystem. An ordered list of
// layer roots is searched for resources so that files in a higher layer
// (e.g. an application) transparently override files of the same name in
// a lower layer (e.g. a system library).
package filesystem

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/z5labs/cascade/codec"
	"github.com/z5labs/cascade/internal/noop"

	"github.com/spf13/afero"
)

// DefaultExt is the extension used by FindFile when none is given.
const DefaultExt = "yaml"

// Kinds which always resolve to every matching layer, since their files
// are meant to be merged together.
var cascadingKinds = map[string]struct{}{
	"config":   {},
	"i18n":     {},
	"messages": {},
}

// IsCascadingKind reports whether lookups of kind always return every match.
func IsCascadingKind(kind string) bool {
	_, ok := cascadingKinds[kind]
	return ok
}

// Option configures a Cascade.
type Option func(*Cascade)

// Layers sets the layer roots, highest precedence first.
func Layers(roots ...string) Option {
	return func(c *Cascade) {
		c.layers = append([]string(nil), roots...)
	}
}

// Caching enables memoization of FindFile and FindDir results.
func Caching(enabled bool) Option {
	return func(c *Cascade) {
		c.caching = enabled
	}
}

// DefaultExtension overrides DefaultExt.
func DefaultExtension(ext string) Option {
	return func(c *Cascade) {
		c.defaultExt = ext
	}
}

// FS sets the filesystem all layers live on. Defaults to the OS filesystem.
func FS(fs afero.Fs) Option {
	return func(c *Cascade) {
		c.fs = fs
	}
}

// Codecs sets the registry Load uses to decode files.
func Codecs(r *codec.Registry) Option {
	return func(c *Cascade) {
		c.codecs = r
	}
}

// LogHandler sets the slog.Handler the Cascade logs with.
func LogHandler(h slog.Handler) Option {
	return func(c *Cascade) {
		c.log = noop.Logger(h)
	}
}

// RenderTemplates renders every file as a text/template before it is
// decoded by Load.
func RenderTemplates(opts ...TemplateOption) Option {
	return func(c *Cascade) {
		to := defaultTemplateOptions()
		for _, opt := range opts {
			opt(to)
		}
		c.tmpl = to
	}
}

type entryKind uint8

const (
	fileEntry entryKind = iota
	dirEntry
)

type cacheKey struct {
	entry entryKind
	path  string
	all   bool
}

// Cascade resolves logical resources against an ordered list of layers.
// It is safe for concurrent use.
type Cascade struct {
	fs         afero.Fs
	log        *slog.Logger
	codecs     *codec.Registry
	defaultExt string
	caching    bool
	tmpl       *templateOptions

	mu     sync.RWMutex
	layers []string
	gen    uint64
	cache  map[cacheKey]Result
}

// New returns a fully initialized Cascade.
func New(opts ...Option) *Cascade {
	c := &Cascade{
		fs:         afero.NewOsFs(),
		log:        noop.Logger(nil),
		codecs:     codec.Default(),
		defaultExt: DefaultExt,
		cache:      make(map[cacheKey]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLayers replaces the layer list and clears the path cache.
func (c *Cascade) SetLayers(roots ...string) *Cascade {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.layers = append([]string(nil), roots...)
	c.resetLocked()
	return c
}

// Layers returns a copy of the current layer list.
func (c *Cascade) Layers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.layers...)
}

// Caching reports whether lookups are memoized.
func (c *Cascade) Caching() bool {
	return c.caching
}

// ClearCache drops every memoized lookup.
func (c *Cascade) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Cascade) resetLocked() {
	c.gen++
	c.cache = make(map[cacheKey]Result)
}

// FindFile searches for kind/name.ext in every layer.
//
// By default the highest precedence match is returned. If All is given,
// or kind is one of the cascading kinds ("config", "i18n", "messages"),
// every match is returned ordered from the lowest to the highest
// precedence layer, which is the order they must be merged in.
//
//	// views/template.yaml from the highest layer which has it
//	res := c.FindFile("views", "template")
//
//	// media/css/style.css
//	res := c.FindFile("media", "css/style", Extension("css"))
//
//	// every config/mimes.yaml
//	res := c.FindFile("config", "mimes")
//
// A missing resource is not an error, the Result is simply empty.
func (c *Cascade) FindFile(kind, name string, opts ...FindOption) Result {
	fo := c.findOptions(opts)

	ext := ""
	switch {
	case fo.ext == nil:
		ext = "." + c.defaultExt
	case *fo.ext != "":
		ext = "." + *fo.ext
	}

	rel := filepath.Join(kind, name+ext)
	return c.find(kind, fileEntry, rel, fo.all, func(fi os.FileInfo) bool {
		return fi.Mode().IsRegular()
	})
}

// FindDir searches for the directory kind in every layer. It follows the
// same precedence rules as FindFile.
func (c *Cascade) FindDir(kind string, opts ...FindOption) Result {
	fo := c.findOptions(opts)

	return c.find(kind, dirEntry, filepath.Clean(kind), fo.all, func(fi os.FileInfo) bool {
		return fi.IsDir()
	})
}

func (c *Cascade) findOptions(opts []FindOption) *findOptions {
	fo := &findOptions{}
	for _, opt := range opts {
		opt(fo)
	}
	return fo
}

func (c *Cascade) find(kind string, entry entryKind, rel string, all bool, match func(os.FileInfo) bool) Result {
	key := cacheKey{entry: entry, path: rel, all: all}

	c.mu.RLock()
	if c.caching {
		if res, ok := c.cache[key]; ok {
			c.mu.RUnlock()
			return res
		}
	}
	layers := c.layers
	gen := c.gen
	c.mu.RUnlock()

	var res Result
	if all || IsCascadingKind(kind) {
		res = c.findAll(layers, rel, match)
	} else {
		res = c.findFirst(layers, rel, match)
	}

	if !c.caching {
		return res
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// the layers changed while searching so this result is already stale
	if gen != c.gen {
		return res
	}
	c.cache[key] = res
	return res
}

func (c *Cascade) findAll(layers []string, rel string, match func(os.FileInfo) bool) Result {
	res := Result{multi: true}
	for i := len(layers) - 1; i >= 0; i-- {
		p := filepath.Join(layers[i], rel)
		if c.exists(p, match) {
			res.paths = append(res.paths, p)
		}
	}
	return res
}

func (c *Cascade) findFirst(layers []string, rel string, match func(os.FileInfo) bool) Result {
	for _, layer := range layers {
		p := filepath.Join(layer, rel)
		if c.exists(p, match) {
			return Result{paths: []string{p}}
		}
	}
	return Result{}
}

func (c *Cascade) exists(path string, match func(os.FileInfo) bool) bool {
	fi, err := c.fs.Stat(path)
	if err != nil {
		return false
	}
	return match(fi)
}
