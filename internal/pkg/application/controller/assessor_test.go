package controller

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sensemesh/iot-control-loop/pkg/types"
)

func reading(v types.Value) types.Datum {
	return types.NewDatum(v, types.DegreesC, time.Now())
}

func TestAssessorCoolsAboveTheBand(t *testing.T) {
	is := is.New(t)

	command, ok := Thermo5000Assessor(reading(types.Float(30)))
	is.True(ok)
	is.Equal(command, types.CoolBy(5))
}

func TestAssessorHeatsBelowTheBand(t *testing.T) {
	is := is.New(t)

	command, ok := Thermo5000Assessor(reading(types.Float(21)))
	is.True(ok)
	is.Equal(command, types.HeatBy(4))
}

func TestAssessorBandEndpointsAreInclusive(t *testing.T) {
	is := is.New(t)

	_, ok := Thermo5000Assessor(reading(types.Float(22)))
	is.Equal(ok, false)

	_, ok = Thermo5000Assessor(reading(types.Float(28)))
	is.Equal(ok, false)

	_, ok = Thermo5000Assessor(reading(types.Float(25)))
	is.Equal(ok, false)
}

func TestAssessorReactsJustOutsideTheBand(t *testing.T) {
	is := is.New(t)

	command, ok := Thermo5000Assessor(reading(types.Float(28.1)))
	is.True(ok)
	is.Equal(command.Name, types.CommandCoolBy)
	is.True(command.Value > 3.09 && command.Value < 3.11)

	command, ok = Thermo5000Assessor(reading(types.Float(21.9)))
	is.True(ok)
	is.Equal(command.Name, types.CommandHeatBy)
	is.True(command.Value > 3.09 && command.Value < 3.11)
}

func TestAssessorIgnoresNonFloats(t *testing.T) {
	is := is.New(t)

	_, ok := Thermo5000Assessor(reading(types.Bool(true)))
	is.Equal(ok, false)

	_, ok = Thermo5000Assessor(reading(types.Int(40)))
	is.Equal(ok, false)
}
