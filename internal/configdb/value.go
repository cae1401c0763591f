package configdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind enumerates the primitive types a configuration field can hold.
type Kind int

const (
	KindUint Kind = iota
	KindFloat
	KindString
	KindBool
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindStringList:
		return "string list"
	default:
		return "unknown"
	}
}

// ConversionError reports a field access with the wrong type expectation.
type ConversionError struct {
	Want Kind
	Got  Kind
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("field holds %s, want %s", e.Got, e.Want)
}

// Value is a tagged union for a single configuration field. Configuration
// records mix integers, floats, strings, booleans and string lists in one
// map; Value keeps the stored kind explicit and makes every conversion a
// checked operation instead of a cast.
type Value struct {
	kind Kind
	u    uint64
	f    float64
	s    string
	b    bool
	list []string
}

func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func StringList(v ...string) Value { return Value{kind: KindStringList, list: v} }

// Kind reports the stored kind.
func (v Value) Kind() Kind { return v.kind }

// AsUint64 returns the value as an unsigned integer. Float values that are
// non-negative integers convert losslessly; everything else fails.
func (v Value) AsUint64() (uint64, error) {
	switch v.kind {
	case KindUint:
		return v.u, nil
	case KindFloat:
		// MaxUint64 rounds up to 2^64 as a float, so the bound is
		// exclusive.
		if v.f >= 0 && v.f == math.Trunc(v.f) && v.f < math.MaxUint64 {
			return uint64(v.f), nil
		}
	}
	return 0, &ConversionError{Want: KindUint, Got: v.kind}
}

// AsFloat64 returns the value as a float. Unsigned integers widen.
func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindUint:
		return float64(v.u), nil
	}
	return 0, &ConversionError{Want: KindFloat, Got: v.kind}
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &ConversionError{Want: KindString, Got: v.kind}
	}
	return v.s, nil
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, &ConversionError{Want: KindBool, Got: v.kind}
	}
	return v.b, nil
}

func (v Value) AsStringList() ([]string, error) {
	if v.kind != KindStringList {
		return nil, &ConversionError{Want: KindStringList, Got: v.kind}
	}
	return v.list, nil
}

// UnmarshalJSON decodes a JSON scalar (or string array) into the union.
// Non-negative integer literals become KindUint so that Bus/Address style
// fields survive the round trip without float truncation concerns.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case json.Number:
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			*v = Uint(u)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = Float(f)
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("unsupported list element in field value %s", string(data))
			}
			list = append(list, s)
		}
		*v = StringList(list...)
	default:
		return fmt.Errorf("unsupported field value %s", string(data))
	}
	return nil
}
