// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package codec decodes and encodes configuration documents based on
// their file extension.
package codec

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Decoder turns a raw document into a generic value.
type Decoder interface {
	Decode([]byte) (any, error)
}

// DecoderFunc is a functional implementation of the Decoder interface.
type DecoderFunc func([]byte) (any, error)

// Decode implements the Decoder interface.
func (f DecoderFunc) Decode(b []byte) (any, error) {
	return f(b)
}

// Encoder turns a generic value into a raw document.
type Encoder interface {
	Encode(any) ([]byte, error)
}

// EncoderFunc is a functional implementation of the Encoder interface.
type EncoderFunc func(any) ([]byte, error)

// Encode implements the Encoder interface.
func (f EncoderFunc) Encode(v any) ([]byte, error) {
	return f(v)
}

// UnsupportedFormatError occurs when no Decoder or Encoder has been
// registered for an extension.
type UnsupportedFormatError struct {
	Ext string
}

// Error implements the error interface.
func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported config format: %q", e.Ext)
}

// DecodeError occurs if a document is not valid for its format.
type DecodeError struct {
	Ext   string
	Cause error
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Ext, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// EncodeError occurs if a value can not be represented in a format.
type EncodeError struct {
	Ext   string
	Cause error
}

// Error implements the error interface.
func (e EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %s", e.Ext, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e EncodeError) Unwrap() error {
	return e.Cause
}

// Registry maps file extensions to Decoders and Encoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	encoders map[string]Encoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		encoders: make(map[string]Encoder),
	}
}

// Default returns a new Registry with every built in format registered.
//
// Decoding: yaml, yml, json, toml, ini, hcl, properties and env.
// Encoding: yaml, yml, json and toml.
func Default() *Registry {
	r := NewRegistry()
	r.RegisterDecoder("yaml", DecoderFunc(decodeYaml))
	r.RegisterDecoder("yml", DecoderFunc(decodeYaml))
	r.RegisterDecoder("json", DecoderFunc(decodeJson))
	r.RegisterDecoder("toml", DecoderFunc(decodeToml))
	r.RegisterDecoder("ini", DecoderFunc(decodeIni))
	r.RegisterDecoder("hcl", DecoderFunc(decodeHcl))
	r.RegisterDecoder("properties", DecoderFunc(decodeProperties))
	r.RegisterDecoder("env", DecoderFunc(decodeEnv))

	r.RegisterEncoder("yaml", EncoderFunc(encodeYaml))
	r.RegisterEncoder("yml", EncoderFunc(encodeYaml))
	r.RegisterEncoder("json", EncoderFunc(encodeJson))
	r.RegisterEncoder("toml", EncoderFunc(encodeToml))
	return r
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// RegisterDecoder registers d for the given extension. A leading
// period is ignored and extensions are case insensitive.
func (r *Registry) RegisterDecoder(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[normalizeExt(ext)] = d
}

// RegisterEncoder registers e for the given extension.
func (r *Registry) RegisterEncoder(ext string, e Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[normalizeExt(ext)] = e
}

// Decode decodes b with the Decoder registered for ext.
func (r *Registry) Decode(ext string, b []byte) (any, error) {
	ext = normalizeExt(ext)

	r.mu.RLock()
	d, ok := r.decoders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, UnsupportedFormatError{Ext: ext}
	}

	v, err := d.Decode(b)
	if err != nil {
		return nil, DecodeError{Ext: ext, Cause: err}
	}
	return v, nil
}

// Encode encodes v with the Encoder registered for ext.
func (r *Registry) Encode(ext string, v any) ([]byte, error) {
	ext = normalizeExt(ext)

	r.mu.RLock()
	e, ok := r.encoders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, UnsupportedFormatError{Ext: ext}
	}

	b, err := e.Encode(v)
	if err != nil {
		return nil, EncodeError{Ext: ext, Cause: err}
	}
	return b, nil
}

// Extensions returns the sorted list of decodable extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
