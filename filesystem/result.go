// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filesystem

type findOptions struct {
	ext *string
	all bool
}

// FindOption customizes a single FindFile or FindDir lookup.
type FindOption func(*findOptions)

// All returns every match instead of only the highest precedence one.
func All() FindOption {
	return func(fo *findOptions) {
		fo.all = true
	}
}

// Extension searches for files with the given extension instead of the
// default one. An empty ext is the same as NoExtension.
func Extension(ext string) FindOption {
	return func(fo *findOptions) {
		fo.ext = &ext
	}
}

// NoExtension searches for files with no extension at all.
func NoExtension() FindOption {
	return Extension("")
}

// Result is the outcome of a lookup.
type Result struct {
	paths []string
	multi bool
}

// Found reports whether at least one layer matched.
func (r Result) Found() bool {
	return len(r.paths) > 0
}

// Multi reports whether every layer was searched.
func (r Result) Multi() bool {
	return r.multi
}

// Paths returns the matched paths. For multi lookups they are ordered from
// the lowest to the highest precedence layer.
func (r Result) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Path returns the highest precedence match.
func (r Result) Path() (string, bool) {
	if len(r.paths) == 0 {
		return "", false
	}
	if r.multi {
		return r.paths[len(r.paths)-1], true
	}
	return r.paths[0], true
}
