package environment

import (
	"math"
	"math/rand"
	"time"

	"github.com/sensemesh/iot-control-loop/pkg/types"
)

// Coefficients shape a generated signal:
//
//	value(t) = Constant + Slope*t + Amplitude*sin(2π*(t+Phase)/Period)
//
// where t is the number of milliseconds since the generator was created.
// Period must never be zero; constructors normalize a zero period to
// (Amplitude 0, Period 1) so the sine term vanishes instead of dividing
// by zero.
type Coefficients struct {
	Constant  float32 `yaml:"constant"`
	Slope     float32 `yaml:"slope"`
	Amplitude float32 `yaml:"amplitude"`
	Period    float32 `yaml:"period"`
	Phase     float32 `yaml:"phase"`
}

// Generator produces a stream of datums for one sensor id. Bool generators
// carry mutable state (they alternate), and commands nudge the constant of
// float generators, so all access goes through the environment's lock.
type Generator struct {
	t0           time.Time
	kind         types.Kind
	unit         types.Unit
	coefficients Coefficients
	noise        float32
	state        bool
}

func NewGenerator(kind types.Kind, unit types.Unit, c Coefficients, noise float32) *Generator {
	if c.Period == 0 {
		c.Amplitude = 0
		c.Period = 1
	}

	return &Generator{
		t0:           time.Now(),
		kind:         kind,
		unit:         unit,
		coefficients: c,
		noise:        noise,
		state:        true,
	}
}

// NewFloatGenerator produces float datums following the full signal shape
// plus uniform noise in [-noise/2, +noise/2].
func NewFloatGenerator(unit types.Unit, c Coefficients, noise float32) *Generator {
	return NewGenerator(types.KindFloat, unit, c, noise)
}

// NewIntGenerator produces int datums drifting along Slope*t with uniform
// noise in [-noise, +noise], truncated to int32.
func NewIntGenerator(unit types.Unit, c Coefficients, noise float32) *Generator {
	return NewGenerator(types.KindInt, unit, c, noise)
}

// NewBoolGenerator produces bool datums that alternate on every call,
// starting with initial.
func NewBoolGenerator(unit types.Unit, initial bool) *Generator {
	g := NewGenerator(types.KindBool, unit, Coefficients{Period: 1}, 0)
	g.state = initial
	return g
}

// Default returns the generator registered for a sensor that announces
// itself with only a kind and a unit: a slow ±5 sinusoid for floats, a
// ~1/s drift for ints, an alternating true/false for bools.
func Default(kind types.Kind, unit types.Unit) *Generator {
	switch kind {
	case types.KindBool:
		return NewBoolGenerator(unit, true)
	case types.KindInt:
		return NewIntGenerator(unit, Coefficients{Slope: 0.001, Period: 1}, 1)
	default:
		return NewFloatGenerator(unit, Coefficients{Amplitude: 5, Period: 10000}, 0.5)
	}
}

// Generate produces the next datum, stamped with the current time.
func (g *Generator) Generate() types.Datum {
	now := time.Now()
	t := float32(now.Sub(g.t0).Milliseconds())

	switch g.kind {
	case types.KindBool:
		value := g.state
		g.state = !g.state
		return types.NewDatum(types.Bool(value), g.unit, now)

	case types.KindInt:
		value := g.coefficients.Slope*t + (rand.Float32()*2-1)*g.noise
		return types.NewDatum(types.Int(int32(value)), g.unit, now)

	default:
		c := g.coefficients
		noise := (rand.Float32() - 0.5) * g.noise
		wave := c.Amplitude * float32(math.Sin(float64(2*math.Pi*(t+c.Phase)/c.Period)))
		return types.NewDatum(types.Float(c.Constant+c.Slope*t+wave+noise), g.unit, now)
	}
}

func (g *Generator) Kind() types.Kind {
	return g.kind
}

func (g *Generator) Unit() types.Unit {
	return g.unit
}
