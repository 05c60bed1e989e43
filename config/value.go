// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"reflect"
)

// Map is an associative config value. Values nested inside of a Map are
// either a Map, a List or a scalar.
type Map map[string]any

// List is a sequential config value.
type List []any

// Clone returns a deep copy of m. The clone of a nil Map is empty.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

// Clone returns a deep copy of l.
func (l List) Clone() List {
	out := make(List, len(l))
	for i, v := range l {
		out[i] = Normalize(v)
	}
	return out
}

// Normalize converts a decoded value into its tagged form: every kind of
// map becomes a Map, every kind of slice or array becomes a List and
// anything else is kept as a scalar. The result never shares containers
// with v.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Map:
		return x.Clone()
	case map[string]any:
		return Map(x).Clone()
	case List:
		return x.Clone()
	case []any:
		return List(x).Clone()
	case string, bool, int, int64, float64:
		return x
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make(List, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

// NotAMapError occurs when a config fragment is expected to be a Map
// but is something else, e.g. a file whose top level is a list.
type NotAMapError struct {
	Origin string
	Type   string
}

// Error implements the error interface.
func (e NotAMapError) Error() string {
	return fmt.Sprintf("config from %s must be a map but is a %s", e.Origin, e.Type)
}

// AsMap normalizes v and asserts it is a Map. A nil v is an empty Map.
// The origin names where v came from and is only used in the error.
func AsMap(origin string, v any) (Map, error) {
	if v == nil {
		return Map{}, nil
	}

	m, ok := Normalize(v).(Map)
	if !ok {
		return nil, NotAMapError{Origin: origin, Type: fmt.Sprintf("%T", v)}
	}
	return m, nil
}
