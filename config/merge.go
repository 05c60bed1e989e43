// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import "reflect"

// Merge returns a new Map containing dst with src merged on top of it.
// Neither argument is modified.
//
// For keys present in both, two Maps are merged recursively and two Lists
// are unioned, appending elements of src which dst does not already hold.
// Anything else is overwritten by the value from src.
//
//	a := Map{"name": "john", "children": List{"fred", "paul", "sally", "jane"}}
//	b := Map{"name": "mary", "children": List{"jane"}}
//
//	// Map{"name": "mary", "children": List{"fred", "paul", "sally", "jane"}}
//	m := Merge(a, b)
func Merge(dst, src Map) Map {
	out := dst.Clone()
	mergeMap(out, src.Clone())
	return out
}

func mergeMap(dst, src Map) {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = sv
			continue
		}

		switch s := sv.(type) {
		case Map:
			if d, ok := dv.(Map); ok {
				mergeMap(d, s)
				continue
			}
		case List:
			if d, ok := dv.(List); ok {
				dst[k] = union(d, s)
				continue
			}
		}
		dst[k] = sv
	}
}

func union(dst, src List) List {
	for _, v := range src {
		if contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func contains(l List, v any) bool {
	for _, x := range l {
		if equal(x, v) {
			return true
		}
	}
	return false
}

// equal reports whether a and b hold the same config value. Numbers are
// compared by value, so the int 443 decoded from yaml equals the float64
// 443 decoded from json.
func equal(a, b any) bool {
	switch x := a.(type) {
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equal(xv, yv) {
				return false
			}
		}
		return true
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}

	xv, yv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isNumber(xv) && isNumber(yv) {
		return numbersEqual(xv, yv)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func numbersEqual(a, b reflect.Value) bool {
	switch {
	case a.CanInt() && b.CanInt():
		return a.Int() == b.Int()
	case a.CanUint() && b.CanUint():
		return a.Uint() == b.Uint()
	case a.CanInt() && b.CanUint():
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	case a.CanUint() && b.CanInt():
		return b.Int() >= 0 && a.Uint() == uint64(b.Int())
	}
	return toFloat(a) == toFloat(b)
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
