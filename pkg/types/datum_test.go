package types

import (
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

var testStamp = time.Date(2024, 1, 3, 18, 3, 21, 742821000, time.UTC)

func TestDatumString(t *testing.T) {
	is := is.New(t)

	d := NewDatum(Float(42.1), DegreesC, testStamp)
	is.Equal(d.String(), `{"value":"42.1","unit":"°C","timestamp":"2024-01-03T18:03:21.742821Z"}`)
}

func TestDatumRoundTrip(t *testing.T) {
	is := is.New(t)

	for _, d := range []Datum{
		NewDatum(Bool(false), PoweredOn, testStamp),
		NewDatum(Int(19), Unitless, testStamp),
		NewDatum(Float(25.0), DegreesC, testStamp),
	} {
		parsed, err := ParseDatum(d.String())
		is.NoErr(err)
		is.Equal(parsed.Value, d.Value)
		is.Equal(parsed.Unit, d.Unit)
		is.True(parsed.Timestamp.Equal(d.Timestamp))
	}
}

func TestParseDatumIgnoresWhitespace(t *testing.T) {
	is := is.New(t)

	d, err := ParseDatum(" { \"value\": \"42.1\" , \"unit\": \"°C\" , \"timestamp\": \"2024-01-03T18:03:21.742821Z\" } ")
	is.NoErr(err)
	is.Equal(d.Value, Float(42.1))
	is.Equal(d.Unit, DegreesC)
	is.True(d.Timestamp.Equal(testStamp))
}

func TestParseDatumNotFormatted(t *testing.T) {
	is := is.New(t)

	_, err := ParseDatum("blorp")
	is.True(err != nil)
	is.Equal(err.Error(), "'blorp' is not formatted like a serialized Datum")
}

func TestParseDatumBadValueSurfacesValueError(t *testing.T) {
	is := is.New(t)

	_, err := ParseDatum(`{"value":"x","unit":"","timestamp":"2024-01-03T18:03:21Z"}`)
	is.True(err != nil)
	is.Equal(err.Error(), "cannot parse 'x' as a Value")
}

func TestParseDatumBadUnitSurfacesUnitError(t *testing.T) {
	is := is.New(t)

	_, err := ParseDatum(`{"value":"1","unit":"K","timestamp":"2024-01-03T18:03:21Z"}`)
	is.True(err != nil)
	is.Equal(err.Error(), "cannot parse 'K' as a Unit")
}

func TestParseDatumsRoundTrip(t *testing.T) {
	is := is.New(t)

	a := NewDatum(Float(25.5), DegreesC, testStamp)
	b := NewDatum(Float(26.0), DegreesC, testStamp.Add(time.Second))

	datums, err := ParseDatums("[" + a.String() + "," + b.String() + "]")
	is.NoErr(err)
	is.Equal(len(datums), 2)
	is.Equal(datums[0].Value, a.Value)
	is.Equal(datums[1].Value, b.Value)
}

func TestParseDatumsEmptyArray(t *testing.T) {
	is := is.New(t)

	datums, err := ParseDatums("[]")
	is.NoErr(err)
	is.Equal(len(datums), 0)
}

func TestParseDatumsRejectsNonArrays(t *testing.T) {
	is := is.New(t)

	_, err := ParseDatums("blorp")
	is.True(err != nil)

	_, err = ParseDatums(`[{"value":"x","unit":"","timestamp":"2024-01-03T18:03:21Z"}]`)
	is.True(err != nil)
}

func TestDatumFloatTextContainsPoint(t *testing.T) {
	is := is.New(t)

	d := NewDatum(Float(42), DegreesC, testStamp)
	is.True(strings.Contains(d.String(), `"value":"42.0"`))
}

func TestDatumAccessors(t *testing.T) {
	is := is.New(t)

	f := NewDatum(Float(42.0), Unitless, testStamp)
	v, ok := f.AsFloat()
	is.True(ok)
	is.Equal(v, float32(42.0))
	_, ok = f.AsBool()
	is.Equal(ok, false)

	b := NewDatum(Bool(true), Unitless, testStamp)
	bv, ok := b.AsBool()
	is.True(ok)
	is.Equal(bv, true)
	_, ok = b.AsInt()
	is.Equal(ok, false)

	i := NewDatum(Int(19), Unitless, testStamp)
	iv, ok := i.AsInt()
	is.True(ok)
	is.Equal(iv, int32(19))
	_, ok = i.AsFloat()
	is.Equal(ok, false)
}
