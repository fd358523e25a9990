package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Command tells an actuator how to nudge the environment. The only model
// with commands is the Thermo5000, whose verbs carry a temperature delta
// in degrees.
type Command struct {
	Name  string
	Value float32
}

const (
	CommandHeatBy = "HeatBy"
	CommandCoolBy = "CoolBy"
)

func HeatBy(delta float32) Command {
	return Command{Name: CommandHeatBy, Value: delta}
}

func CoolBy(delta float32) Command {
	return Command{Name: CommandCoolBy, Value: delta}
}

// String renders the wire form, for example {"name":"HeatBy","value":"5.0"}.
func (c Command) String() string {
	return fmt.Sprintf(`{"name":"%s","value":"%s"}`, c.Name, FormatFloat(c.Value))
}

// ParseCommand inverts String. Whitespace is insignificant; the verb must be
// one of HeatBy, CoolBy.
func ParseCommand(s string) (Command, error) {
	stripped := stripWhitespace(s)
	stripped = strings.TrimPrefix(stripped, "{")
	stripped = strings.TrimSuffix(stripped, "}")
	pieces := strings.Split(stripped, ",")
	if len(pieces) != 2 {
		return Command{}, fmt.Errorf("cannot parse '%s' as Command", s)
	}

	name := trimField(pieces[0], "name")
	if name != CommandHeatBy && name != CommandCoolBy {
		return Command{}, fmt.Errorf("cannot parse '%s' as Command", s)
	}

	raw := trimField(pieces[1], "value")
	value, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return Command{}, fmt.Errorf("cannot parse '%s' as f32", raw)
	}

	return Command{Name: name, Value: float32(value)}, nil
}
