// internal/rules/values.go
package rules

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
)

/*
 * JSON value helpers.
 *
 * Documents arrive decoded with UseNumber (json.Number, string, bool, nil,
 * []any, map[string]any). Predicates built in Go may carry native numeric
 * types, typed slices or typed maps instead, so classification falls back to
 * reflection for anything outside the decoded set.
 *
 * Number equality follows the literal: an integer literal never equals a
 * float literal, so 1 and 1.0 differ. Two integers compare exactly; two floats
 * compare as float64. Integer literals outside the 64-bit range count as
 * floats. Go floats are floats even when integral.
 */

type valueKind int

const (
	kindUnknown valueKind = iota
	kindNull
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

var kindNames = [...]string{
	kindUnknown: "unknown",
	kindNull:    "null",
	kindBool:    "boolean",
	kindNumber:  "number",
	kindString:  "string",
	kindArray:   "array",
	kindObject:  "object",
}

func (k valueKind) String() string {
	return kindNames[k]
}

// TypeName returns the JSON type name of v as used in error messages:
// null, boolean, number, string, array or object.
func TypeName(v any) string {
	return kindOf(v).String()
}

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return kindNumber
	case string:
		return kindString
	case []any:
		return kindArray
	case map[string]any:
		return kindObject
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return kindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindNumber
	case reflect.String:
		return kindString
	case reflect.Slice:
		if rv.IsNil() {
			return kindNull
		}
		return kindArray
	case reflect.Array:
		return kindArray
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return kindUnknown
		}
		if rv.IsNil() {
			return kindNull
		}
		return kindObject
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return kindNull
		}
		return kindOf(rv.Elem().Interface())
	}
	return kindUnknown
}

// deref unwraps non-nil pointers so reflective helpers see the pointee.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// toFloat64 interprets v as a float64 when v is a JSON number.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			// Out-of-range literals still parse to ±Inf.
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return f, true
			}
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}

	if kindOf(v) != kindNumber {
		return 0, false
	}
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toBigInt returns v as an exact integer when it is an integer literal that
// fits in int64 or uint64.
func toBigInt(v any) (*big.Int, bool) {
	if n, ok := v.(json.Number); ok {
		i, ok := new(big.Int).SetString(string(n), 10)
		if !ok || !(i.IsInt64() || i.IsUint64()) {
			return nil, false
		}
		return i, true
	}
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}

func numbersEqual(a, b any) bool {
	ai, aInt := toBigInt(a)
	bi, bInt := toBigInt(b)
	if aInt != bInt {
		return false
	}
	if aInt {
		return ai.Cmp(bi) == 0
	}
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	return aok && bok && af == bf
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return reflect.ValueOf(deref(v)).String()
}

func boolOf(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return reflect.ValueOf(deref(v)).Bool()
}

// asArray returns the elements of v when v is a JSON array.
func asArray(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	if kindOf(v) != kindArray {
		return nil, false
	}
	rv := reflect.ValueOf(deref(v))
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asObject returns v as a string-keyed map when v is a JSON object.
func asObject(v any) (map[string]any, bool) {
	if obj, ok := v.(map[string]any); ok {
		return obj, true
	}
	if kindOf(v) != kindObject {
		return nil, false
	}
	rv := reflect.ValueOf(deref(v))
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// deepEqual is JSON structural equality: type-sensitive, order-sensitive
// for arrays, key-set-and-value for objects.
func deepEqual(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}

	switch ka {
	case kindNull:
		return true
	case kindBool:
		return boolOf(a) == boolOf(b)
	case kindNumber:
		return numbersEqual(a, b)
	case kindString:
		return stringOf(a) == stringOf(b)
	case kindArray:
		xs, _ := asArray(a)
		ys, _ := asArray(b)
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !deepEqual(xs[i], ys[i]) {
				return false
			}
		}
		return true
	case kindObject:
		xm, _ := asObject(a)
		ym, _ := asObject(b)
		if len(xm) != len(ym) {
			return false
		}
		for k, xv := range xm {
			yv, ok := ym[k]
			if !ok || !deepEqual(xv, yv) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// cloneValue deep-copies decoded JSON containers. Scalars and foreign types
// are returned as-is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = cloneValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}
