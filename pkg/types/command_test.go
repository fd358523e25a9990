package types

import (
	"testing"

	"github.com/matryer/is"
)

func TestCommandString(t *testing.T) {
	is := is.New(t)

	is.Equal(HeatBy(5).String(), `{"name":"HeatBy","value":"5.0"}`)
	is.Equal(CoolBy(3.1).String(), `{"name":"CoolBy","value":"3.1"}`)
}

func TestCommandRoundTrip(t *testing.T) {
	is := is.New(t)

	for _, c := range []Command{HeatBy(5), CoolBy(3.1), HeatBy(0.25)} {
		parsed, err := ParseCommand(c.String())
		is.NoErr(err)
		is.Equal(parsed, c)
	}
}

func TestParseCommandIgnoresWhitespace(t *testing.T) {
	is := is.New(t)

	c, err := ParseCommand(" { \"name\": \"HeatBy\", \"value\": \"5.0\" } ")
	is.NoErr(err)
	is.Equal(c, HeatBy(5))
}

func TestParseCommandUnknownVerb(t *testing.T) {
	is := is.New(t)

	input := `{"name":"Blorp","value":":("}`
	_, err := ParseCommand(input)
	is.True(err != nil)
	is.Equal(err.Error(), "cannot parse '"+input+"' as Command")
}

func TestParseCommandBadValue(t *testing.T) {
	is := is.New(t)

	_, err := ParseCommand(`{"name":"HeatBy","value":":("}`)
	is.True(err != nil)
	is.Equal(err.Error(), "cannot parse ':(' as f32")
}
