// Package codec encodes metadata for the parquet file-level header.
//
// Metadata is stored as compact JSON under HeaderKey. Encode checks every
// value before marshaling so that an unsupported value is reported with its
// key path instead of being dropped or stringified.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// HeaderKey is the file-level header key that holds encoded metadata.
const HeaderKey = "tablemeta.metadata"

// Encode validates m and returns its JSON encoding with sorted keys. A nil
// or empty mapping encodes as "{}". Floats always carry a decimal point or
// exponent so they decode as floats again.
func Encode(m types.Metadata) (string, error) {
	doc := make(map[string]any, len(m))
	for _, k := range m.Keys() {
		v, err := prepare(k, m[k])
		if err != nil {
			return "", err
		}
		doc[k] = v
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", &types.EncodingError{Reason: err.Error()}
	}
	return string(b), nil
}

// Decode parses an encoded mapping. The stored form does not record Go
// types: integral numbers decode to int when they fit, then int64, then
// uint64 for values above math.MaxInt64, whatever integer type was encoded.
// Other numbers decode to float64. Nested objects become map[string]any and
// arrays []any.
func Decode(s string) (types.Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecoding, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", types.ErrDecoding)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", types.ErrDecoding)
	}

	out := make(types.Metadata, len(raw))
	for k, v := range raw {
		out[k] = normalize(v)
	}
	return out, nil
}

// Embed returns a copy of header with m stored under HeaderKey. Other
// entries are kept as they are.
func Embed(header frame.Header, m types.Metadata) (frame.Header, error) {
	s, err := Encode(m)
	if err != nil {
		return nil, err
	}
	out := header.Clone()
	out[HeaderKey] = s
	return out, nil
}

// Extract decodes the metadata stored in header. It reports false, with a
// nil error, when the header has no HeaderKey entry.
func Extract(header frame.Header) (types.Metadata, bool, error) {
	s, ok := header[HeaderKey]
	if !ok {
		return nil, false, nil
	}
	m, err := Decode(s)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// prepare checks v and returns the value to marshal in its place. path
// names v for error reporting: "a.b[2]".
func prepare(path string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v, nil
	case float64:
		return formatFloat(path, v, x, 64)
	case float32:
		return formatFloat(path, v, float64(x), 32)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v, nil
	case reflect.Float32, reflect.Float64:
		return formatFloat(path, v, rv.Float(), rv.Type().Bits())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, &types.EncodingError{Key: path, Value: v, Reason: "byte sequences are not supported"}
		}
		out := make([]any, rv.Len())
		for i := range out {
			e, err := prepare(path+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &types.EncodingError{Key: path, Value: v, Reason: "map keys must be strings"}
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			e, err := prepare(path+"."+k.String(), rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			out[k.String()] = e
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return prepare(path, rv.Elem().Interface())
	}
	return nil, &types.EncodingError{Key: path, Value: v, Reason: "unsupported type " + rv.Type().String()}
}

func formatFloat(path string, v any, f float64, bits int) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &types.EncodingError{Key: path, Value: v, Reason: "non-finite number"}
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		return number(x)
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

func number(n json.Number) any {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		if i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		return i
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return u
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
