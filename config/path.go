// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/z5labs/cascade/config/key"
)

// Path returns the value at the dotted path inside of v.
//
//	// v["database"]["host"]
//	host, ok := Path(v, "database.host")
//
//	// the "color" of every entry in v["theme"]
//	colors, ok := Path(v, "theme.*.color")
//
// Lists are indexed by position, e.g. "servers.0.addr". An empty path
// returns v itself.
func Path(v any, path string) (any, bool) {
	return lookup(v, key.Parse(path))
}

func lookup(v any, chain key.Chain) (any, bool) {
	if len(chain) == 0 {
		return v, true
	}

	k := chain[0]
	rest := chain[1:]
	switch x := v.(type) {
	case Map:
		if k == key.Wildcard {
			return collect(sortedValues(x), rest)
		}
		sub, ok := x[k.Key()]
		if !ok {
			return nil, false
		}
		return lookup(sub, rest)
	case List:
		if k == key.Wildcard {
			return collect(x, rest)
		}
		i, err := strconv.Atoi(k.Key())
		if err != nil || i < 0 || i >= len(x) {
			return nil, false
		}
		return lookup(x[i], rest)
	default:
		return nil, false
	}
}

func sortedValues(m Map) List {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l := make(List, len(keys))
	for i, k := range keys {
		l[i] = m[k]
	}
	return l
}

func collect(vs List, chain key.Chain) (any, bool) {
	var out List
	for _, v := range vs {
		found, ok := lookup(v, chain)
		if !ok {
			continue
		}
		out = append(out, found)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// EmptyKeyChainError occurs when setting a value without a key.
type EmptyKeyChainError struct {
	Value any
}

// Error implements the error interface.
func (e EmptyKeyChainError) Error() string {
	return fmt.Sprintf("attempted to set value to an empty key chain: %v", e.Value)
}

// UnexpectedKeyValueTypeError represents the situation when
// a nested key is set below a value which is not a Map.
type UnexpectedKeyValueTypeError struct {
	Key          string
	ExpectedType string
}

// Error implements the error interface.
func (e UnexpectedKeyValueTypeError) Error() string {
	return fmt.Sprintf("expected key value to be a %s: %s", e.ExpectedType, e.Key)
}

// SetPath sets v at the dotted path inside of m, creating intermediate
// Maps as needed.
func SetPath(m Map, path string, v any) error {
	return setKeyChain(m, key.Parse(path), Normalize(v))
}

func setKeyChain(m Map, chain key.Chain, v any) error {
	if len(chain) == 0 {
		return EmptyKeyChainError{Value: v}
	}

	root := chain[0].Key()
	if len(chain) == 1 {
		m[root] = v
		return nil
	}

	old, ok := m[root]
	if !ok {
		old = make(Map)
		m[root] = old
	}

	sub, ok := old.(Map)
	if !ok {
		return UnexpectedKeyValueTypeError{
			Key:          root,
			ExpectedType: "config.Map",
		}
	}
	return setKeyChain(sub, chain[1:], v)
}
