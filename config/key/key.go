// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package key provides types for addressing values nested inside of
// configuration groups.
package key

import (
	"strings"
)

// Separator joins the names of a Chain in its string form.
const Separator = "."

// Wildcard matches every entry of a map or list.
const Wildcard = Name("*")

// Keyer is a common interface all value key types must implement.
type Keyer interface {
	Key() string
}

// Chain represents nested keys.
type Chain []Keyer

// Parse splits a dotted path, e.g. "database.primary.host", into a Chain.
// An empty path is an empty Chain.
func Parse(path string) Chain {
	if path == "" {
		return nil
	}

	parts := strings.Split(path, Separator)
	chain := make(Chain, len(parts))
	for i, part := range parts {
		chain[i] = Name(part)
	}
	return chain
}

// Key implements the [Keyer] interface.
func (k Chain) Key() string {
	ss := make([]string, len(k))
	for i := range k {
		ss[i] = k[i].Key()
	}
	return strings.Join(ss, Separator)
}

// Name represents a single key.
type Name string

// Key implements the [Keyer] interface.
func (k Name) Key() string {
	return string(k)
}
