package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a tagged variant over the three datum kinds. Exactly one of the
// payload fields is meaningful, selected by Kind. Values are not generically
// typed because they cross process boundaries as text and are consumed by a
// front end that cannot share Go types.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int32
	Float float32
}

func Bool(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

func Int(v int32) Value {
	return Value{Kind: KindInt, Int: v}
}

func Float(v float32) Value {
	return Value{Kind: KindFloat, Float: v}
}

// ParseValue tries bool, then int, then float. Only the literal tokens
// "true" and "false" parse as bools, so numeric text is never shadowed.
func ParseValue(s string) (Value, error) {
	if s == "true" || s == "false" {
		return Bool(s == "true"), nil
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Int(int32(i)), nil
	}
	if f, err := strconv.ParseFloat(s, 32); err == nil {
		return Float(float32(f)), nil
	}
	return Value{}, fmt.Errorf("cannot parse '%s' as a Value", s)
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	default:
		return FormatFloat(v.Float)
	}
}

// FormatFloat renders f in its shortest round-trippable form with a
// guaranteed decimal point, so float text is never mistaken for an int.
func FormatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
