package types

import "fmt"

// Unit is the unit of measure attached to a datum. Units serialize as the
// glyph a front end would render, which is also the wire form.
type Unit string

const (
	Unitless  Unit = ""
	PoweredOn Unit = "⏼"
	DegreesC  Unit = "°C"
)

func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Unitless, PoweredOn, DegreesC:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("cannot parse '%s' as a Unit", s)
	}
}

func (u Unit) String() string {
	return string(u)
}
