// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Group is a named config mapping merged from every attached source.
// It is safe for concurrent use.
type Group struct {
	name string

	mu  sync.RWMutex
	cfg Map
}

// NewGroup wraps cfg in a Group. cfg is copied.
func NewGroup(name string, cfg Map) *Group {
	return &Group{
		name: name,
		cfg:  cfg.Clone(),
	}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// AsMap returns a copy of the whole group.
func (g *Group) AsMap() Map {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg.Clone()
}

// Lookup returns a copy of the value at the dotted path.
func (g *Group) Lookup(path string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := Path(g.cfg, path)
	if !ok {
		return nil, false
	}
	return Normalize(v), true
}

// Get returns the value at the dotted path or def if it is not set.
//
//	host := g.Get("database.host", "localhost")
func (g *Group) Get(path string, def any) any {
	v, ok := g.Lookup(path)
	if !ok {
		return def
	}
	return v
}

// Set sets the value at the dotted path. The change is only visible to
// holders of this Group, use Repository.Copy to persist it.
func (g *Group) Set(path string, v any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return SetPath(g.cfg, path, v)
}

// String returns the value at path converted to a string.
func (g *Group) String(path string) string {
	return cast.ToString(g.Get(path, nil))
}

// Int returns the value at path converted to an int.
func (g *Group) Int(path string) int {
	return cast.ToInt(g.Get(path, nil))
}

// Bool returns the value at path converted to a bool.
func (g *Group) Bool(path string) bool {
	return cast.ToBool(g.Get(path, nil))
}

// Float64 returns the value at path converted to a float64.
func (g *Group) Float64(path string) float64 {
	return cast.ToFloat64(g.Get(path, nil))
}

// Duration returns the value at path converted to a time.Duration.
// Strings are parsed with time.ParseDuration.
func (g *Group) Duration(path string) time.Duration {
	return cast.ToDuration(g.Get(path, nil))
}

// StringSlice returns the value at path converted to a []string.
func (g *Group) StringSlice(path string) []string {
	v := g.Get(path, nil)
	if l, ok := v.(List); ok {
		v = []any(l)
	}
	return cast.ToStringSlice(v)
}

// StringMap returns the value at path converted to a map[string]any.
func (g *Group) StringMap(path string) map[string]any {
	v := g.Get(path, nil)
	if m, ok := v.(Map); ok {
		v = map[string]any(m)
	}
	return cast.ToStringMap(v)
}

// Unmarshal decodes the group into v. Struct fields are matched using
// the "config" tag. Strings are decoded into encoding.TextUnmarshaler
// implementations and time.Duration fields.
func (g *Group) Unmarshal(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "config",
		Result:  v,
		DecodeHook: composeDecodeHooks(
			textUnmarshalerHookFunc(),
			timeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(g.AsMap()))
}

var errInvalidDecodeCondition = errors.New("invalid decode condition")

// TypeCoercionError occurs when attempting to unmarshal a config
// value to a struct field whose type does not match the config
// value type, up to, coercion.
type TypeCoercionError struct {
	from  reflect.Value
	to    reflect.Value
	Cause error
}

// Error implements the error interface.
func (e TypeCoercionError) Error() string {
	return fmt.Sprintf("failed to coerce value from %s to %s: %s", e.from.Type(), e.to.Type(), e.Cause)
}

// Unwrap implements the implicit interface for usage with errors.Is and errors.As.
func (e TypeCoercionError) Unwrap() error {
	return e.Cause
}

func composeDecodeHooks(hs ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	return func(f, t reflect.Value) (any, error) {
		if !f.IsValid() {
			return nil, nil
		}
		for _, h := range hs {
			v, err := mapstructure.DecodeHookExec(h, f, t)
			if err == nil {
				return v, nil
			}
			if err == errInvalidDecodeCondition {
				continue
			}
			return nil, TypeCoercionError{
				from:  f,
				to:    t,
				Cause: err,
			}
		}
		return f.Interface(), nil
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		result := reflect.New(t).Interface()
		u, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return nil, errInvalidDecodeCondition
		}
		err := u.UnmarshalText([]byte(reflect.ValueOf(data).String()))
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func timeDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return nil, errInvalidDecodeCondition
		}

		switch f.Kind() {
		case reflect.String:
			return time.ParseDuration(reflect.ValueOf(data).String())
		case reflect.Int, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()), nil
		default:
			return nil, errInvalidDecodeCondition
		}
	}
}
