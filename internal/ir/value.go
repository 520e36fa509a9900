package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface representing JSON values.
// Only IRNull, IRString, IRInt, IRFloat, IRBool, IRArray, and IRObject implement it.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a JSON null value.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integral JSON number.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a JSON number with a fraction or exponent.
type IRFloat float64

func (IRFloat) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Single returns the only key and value of a one-entry object.
// ok is false for empty objects and objects with more than one key.
func (obj IRObject) Single() (key string, val IRValue, ok bool) {
	if len(obj) != 1 {
		return "", nil, false
	}
	for k, v := range obj {
		return k, v, true
	}
	return "", nil, false
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8, which orders surrogate pairs differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// KindName returns the JSON-level name of a value's kind, for error messages.
func KindName(v IRValue) string {
	switch v.(type) {
	case IRNull, nil:
		return "null"
	case IRString:
		return "string"
	case IRInt:
		return "integer"
	case IRFloat:
		return "float"
	case IRBool:
		return "boolean"
	case IRArray:
		return "list"
	case IRObject:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsScalar reports whether v is a string, number, or boolean.
func IsScalar(v IRValue) bool {
	switch v.(type) {
	case IRString, IRInt, IRFloat, IRBool:
		return true
	}
	return false
}

// ErrNumberRange reports an integer literal outside int64.
var ErrNumberRange = errors.New("number out of int64 range")

// maxNesting bounds array/object nesting while decoding, as encoding/json does.
const maxNesting = 10000

// DuplicateKeyError reports an object that names the same key twice.
// Path holds the keys and "[i]" indices leading to that object.
type DuplicateKeyError struct {
	Path []string
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("duplicate key %q", e.Key)
	}
	return fmt.Sprintf("duplicate key %q in %s", e.Key, strings.Join(e.Path, "."))
}

// UnmarshalIRValue deserializes JSON into an IRValue.
// Numbers are decoded with json.Number so integers never pass through float64.
// Objects that repeat a key are rejected with a *DuplicateKeyError rather
// than keeping one of the values.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeToken(dec, nil)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return v, nil
}

func decodeToken(dec *json.Decoder, path []string) (IRValue, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return IRNull{}, nil
	case bool:
		return IRBool(t), nil
	case string:
		return IRString(t), nil
	case json.Number:
		return numberToIRValue(t)
	case json.Delim:
		if len(path) >= maxNesting {
			return nil, fmt.Errorf("exceeded max depth %d", maxNesting)
		}
		switch t {
		case '{':
			return decodeObject(dec, path)
		case '[':
			return decodeArray(dec, path)
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder, path []string) (IRValue, error) {
	obj := IRObject{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v: keys must be strings", tok)
		}
		if _, dup := obj[key]; dup {
			return nil, &DuplicateKeyError{Path: slices.Clone(path), Key: key}
		}
		v, err := decodeToken(dec, append(path[:len(path):len(path)], key))
		if err != nil {
			return nil, err
		}
		obj[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, path []string) (IRValue, error) {
	arr := IRArray{}
	for i := 0; dec.More(); i++ {
		v, err := decodeToken(dec, append(path[:len(path):len(path)], fmt.Sprintf("[%d]", i)))
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// FromGo converts a decoded Go value (from encoding/json with UseNumber,
// or from yaml.v3) into an IRValue.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		return numberToIRValue(val)
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d", ErrNumberRange, val)
		}
		return IRInt(val), nil
	case float64:
		return IRFloat(val), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	case map[any]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings", k)
			}
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func numberToIRValue(n json.Number) (IRValue, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNumberRange, s)
		}
		return IRInt(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", s)
	}
	return IRFloat(f), nil
}

// ToGo converts an IRValue back to plain Go values: string, int64, float64,
// bool, nil, []any and map[string]any.
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
