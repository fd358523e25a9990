package controller

import "github.com/sensemesh/iot-control-loop/pkg/types"

// Assessor inspects one datum and decides whether a corrective command is
// warranted.
type Assessor func(types.Datum) (types.Command, bool)

// Thermo5000Assessor keeps temperature inside the [22, 28] dead band around
// a 25 degree target. Readings above it cool back to the target, readings
// below heat back to it, and readings inside the band (endpoints included)
// need no correction. Datums that are not floats assess to nothing.
func Thermo5000Assessor(d types.Datum) (types.Command, bool) {
	t, ok := d.AsFloat()
	if !ok {
		return types.Command{}, false
	}

	switch {
	case t > 28:
		return types.CoolBy(t - 25), true
	case t < 22:
		return types.HeatBy(25 - t), true
	default:
		return types.Command{}, false
	}
}
