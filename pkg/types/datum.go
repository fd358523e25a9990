package types

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Datum is a single observation of some attribute of the environment: a
// typed value, the unit it was measured in, and the time it was taken.
type Datum struct {
	Value     Value
	Unit      Unit
	Timestamp time.Time
}

func NewDatum(v Value, u Unit, ts time.Time) Datum {
	return Datum{Value: v, Unit: u, Timestamp: ts}
}

// String renders the exact wire form, for example
//
//	{"value":"42.1","unit":"°C","timestamp":"2024-01-03T18:03:21.742821Z"}
//
// Timestamps are RFC 3339 in UTC with nanosecond precision.
func (d Datum) String() string {
	return fmt.Sprintf(`{"value":"%s","unit":"%s","timestamp":"%s"}`,
		d.Value, d.Unit, d.Timestamp.UTC().Format(time.RFC3339Nano))
}

// ParseDatum inverts String. All whitespace is insignificant and the three
// fields must appear in value, unit, timestamp order; value and unit parse
// failures surface their own errors.
func ParseDatum(s string) (Datum, error) {
	stripped := stripWhitespace(s)
	stripped = strings.TrimPrefix(stripped, "{")
	stripped = strings.TrimSuffix(stripped, "}")
	pieces := strings.Split(stripped, ",")
	if len(pieces) < 3 {
		return Datum{}, fmt.Errorf("'%s' is not formatted like a serialized Datum", s)
	}

	value, err := ParseValue(trimField(pieces[0], "value"))
	if err != nil {
		return Datum{}, err
	}
	unit, err := ParseUnit(trimField(pieces[1], "unit"))
	if err != nil {
		return Datum{}, err
	}
	timestamp, err := time.Parse(time.RFC3339Nano, trimField(pieces[2], "timestamp"))
	if err != nil {
		return Datum{}, err
	}

	return NewDatum(value, unit, timestamp), nil
}

// ParseDatums parses a JSON array of serialized datums, such as a sensor's
// history body. "[]" yields an empty slice; a single malformed element
// fails the whole array.
func ParseDatums(s string) ([]Datum, error) {
	stripped := stripWhitespace(s)
	if !strings.HasPrefix(stripped, "[") || !strings.HasSuffix(stripped, "]") {
		return nil, fmt.Errorf("'%s' is not formatted like a serialized Datum array", s)
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(stripped, "["), "]")
	if inner == "" {
		return []Datum{}, nil
	}

	pieces := strings.Split(inner, "},{")
	datums := make([]Datum, 0, len(pieces))
	for _, piece := range pieces {
		if !strings.HasPrefix(piece, "{") {
			piece = "{" + piece
		}
		if !strings.HasSuffix(piece, "}") {
			piece += "}"
		}
		d, err := ParseDatum(piece)
		if err != nil {
			return nil, err
		}
		datums = append(datums, d)
	}

	return datums, nil
}

// AsBool returns the raw bool value, if this datum holds one.
func (d Datum) AsBool() (bool, bool) {
	return d.Value.Bool, d.Value.Kind == KindBool
}

// AsInt returns the raw int value, if this datum holds one.
func (d Datum) AsInt() (int32, bool) {
	return d.Value.Int, d.Value.Kind == KindInt
}

// AsFloat returns the raw float value, if this datum holds one.
func (d Datum) AsFloat() (float32, bool) {
	return d.Value.Float, d.Value.Kind == KindFloat
}

func trimField(piece, name string) string {
	piece = strings.TrimPrefix(piece, `"`+name+`":"`)
	return strings.TrimSuffix(piece, `"`)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
