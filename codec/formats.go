// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl"
	"github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

func blank(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}

func decodeYaml(b []byte) (any, error) {
	var v any
	err := yaml.Unmarshal(b, &v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func encodeYaml(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func decodeJson(b []byte) (any, error) {
	if blank(b) {
		return nil, nil
	}

	var v any
	err := json.Unmarshal(b, &v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func encodeJson(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func decodeToml(b []byte) (any, error) {
	m := make(map[string]any)
	err := toml.Unmarshal(b, &m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func encodeToml(v any) ([]byte, error) {
	return toml.Marshal(v)
}

// Keys of the default section live at the top level, every other
// section becomes a nested map.
func decodeIni(b []byte) (any, error) {
	f, err := ini.Load(b)
	if err != nil {
		return nil, err
	}

	m := make(map[string]any)
	for _, sec := range f.Sections() {
		keys := make(map[string]any, len(sec.Keys()))
		for _, k := range sec.Keys() {
			keys[k.Name()] = k.Value()
		}

		if sec.Name() == ini.DefaultSection {
			for k, v := range keys {
				m[k] = v
			}
			continue
		}
		m[sec.Name()] = keys
	}
	return m, nil
}

func decodeHcl(b []byte) (any, error) {
	m := make(map[string]any)
	err := hcl.Unmarshal(b, &m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Dotted property keys are expanded into nested maps, so
// "database.host=localhost" becomes {database: {host: localhost}}.
func decodeProperties(b []byte) (any, error) {
	p, err := properties.Load(b, properties.UTF8)
	if err != nil {
		return nil, err
	}

	flat := p.Map()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := make(map[string]any)
	for _, k := range keys {
		if !expand(m, strings.Split(k, "."), flat[k]) {
			return nil, PropertyConflictError{Key: k}
		}
	}
	return m, nil
}

// PropertyConflictError occurs when a properties key holds a value and
// is also the prefix of a dotted key, e.g. "a=1" and "a.b=2".
type PropertyConflictError struct {
	Key string
}

// Error implements the error interface.
func (e PropertyConflictError) Error() string {
	return fmt.Sprintf("property %q conflicts with a value set for one of its prefixes", e.Key)
}

func expand(m map[string]any, path []string, v string) bool {
	if len(path) == 1 {
		if _, ok := m[path[0]].(map[string]any); ok {
			return false
		}
		m[path[0]] = v
		return true
	}

	cur, exists := m[path[0]]
	if !exists {
		cur = make(map[string]any)
		m[path[0]] = cur
	}
	sub, ok := cur.(map[string]any)
	if !ok {
		return false
	}
	return expand(sub, path[1:], v)
}

func decodeEnv(b []byte) (any, error) {
	env, err := gotenv.StrictParse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	m := make(map[string]any, len(env))
	for k, v := range env {
		m[k] = v
	}
	return m, nil
}
