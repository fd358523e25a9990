// Package environment implements the simulated environment the rest of the
// loop observes and mutates. It owns one datum generator per sensor id,
// serves fresh datums on request and adjusts generators when actuators
// forward commands.
package environment

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

// Commands carry whole degrees; generator constants move in hundredths.
const commandScale = 0.01

type Environment struct {
	identity device.Identity
	addr     types.Address

	mu         sync.Mutex
	generators map[types.ID]*Generator
}

func New(id types.ID, name types.Name) *Environment {
	return &Environment{
		identity:   device.Identity{ID: id, Name: name, Model: types.ModelEnvironment},
		generators: map[types.ID]*Generator{},
	}
}

func (e *Environment) Identity() device.Identity {
	return e.identity
}

func (e *Environment) Group() discovery.Group {
	return discovery.GroupEnvironment
}

// Register installs a generator for id, replacing any existing one. Sensors
// normally self-register through GET /datum/<id>; this is for seeding.
func (e *Environment) Register(id types.ID, g *Generator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generators[id] = g
}

// Run advertises the environment and serves requests until ctx is done.
func (e *Environment) Run(ctx context.Context, ip net.IP, port int) error {
	e.addr = types.NewAddress(ip.String(), port)
	return device.Respond(ctx, e, ip, port)
}

func (e *Environment) Handle(ctx context.Context, conn net.Conn) {
	msg, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		device.Fail(ctx, conn, e.identity.Name, "unable to read Message from stream")
		return
	}

	start := msg.StartLine()
	switch {
	case strings.HasPrefix(start, "GET /datum/"):
		e.handleGetDatum(ctx, conn, msg)
	case start == "POST /command HTTP/1.1":
		e.handlePostCommand(ctx, conn, msg)
	default:
		device.Fail(ctx, conn, e.identity.Name, "cannot parse request: "+start)
	}
}

// handleGetDatum serves GET /datum/<id>. A known id gets the next datum from
// its generator. An unknown id is registered on the fly when the request
// carries parseable kind and unit headers, so sensors can cold-start the
// environment with their first poll.
func (e *Environment) handleGetDatum(ctx context.Context, conn net.Conn, msg wire.Message) {
	log := logging.GetLoggerFromContext(ctx)

	id := types.ID(strings.TrimSuffix(strings.TrimPrefix(msg.StartLine(), "GET /datum/"), " HTTP/1.1"))

	e.mu.Lock()
	generator, known := e.generators[id]
	if !known {
		kindHeader, hasKind := msg.Header("kind")
		unitHeader, hasUnit := msg.Header("unit")
		if !hasKind || !hasUnit {
			e.mu.Unlock()
			device.Fail(ctx, conn, e.identity.Name,
				fmt.Sprintf("unknown Sensor ID '%s'. To register a new sensor, you must include 'kind' and 'unit' headers in your request", id))
			return
		}

		kind, kindErr := types.ParseKind(kindHeader)
		unit, unitErr := types.ParseUnit(unitHeader)
		if kindErr != nil || unitErr != nil {
			e.mu.Unlock()
			device.Fail(ctx, conn, e.identity.Name, "could not parse required headers")
			return
		}

		generator = Default(kind, unit)
		e.generators[id] = generator
		log.Info().Msgf("registered a new %s generator for '%s'", kind, id)
	}
	datum := generator.Generate()
	e.mu.Unlock()

	log.Debug().Msgf("generated Datum for '%s': %s", id, datum)

	if err := wire.Ok().WithBody(datum.String()).Write(conn); err != nil {
		log.Error().Err(err).Msg("failed to write datum response")
	}
}

// handlePostCommand serves POST /command. The id header names the sensor
// whose generator is to be mutated (a forwarding actuator shares that id),
// the model header selects the command dialect, and the body carries the
// command itself.
func (e *Environment) handlePostCommand(ctx context.Context, conn net.Conn, msg wire.Message) {
	log := logging.GetLoggerFromContext(ctx)

	idHeader, hasID := msg.Header("id")
	modelHeader, hasModel := msg.Header("model")
	if !hasID || !hasModel {
		device.Fail(ctx, conn, e.identity.Name,
			"missing required headers. 'id' and 'model' headers are required to update a generator.")
		return
	}

	id := types.ID(idHeader)
	model, err := types.ParseModel(modelHeader)
	if err != nil {
		device.Fail(ctx, conn, e.identity.Name, "could not parse required headers")
		return
	}

	switch model {
	case types.ModelController:
		device.Fail(ctx, conn, e.identity.Name, "the Environment does not accept Commands directly from the Controller")
		return
	case types.ModelEnvironment:
		device.Fail(ctx, conn, e.identity.Name, "the Environment does not accept Commands from itself")
		return
	case types.ModelUnsupported:
		device.Fail(ctx, conn, e.identity.Name, "unsupported device")
		return
	}

	command, err := types.ParseCommand(msg.Body())
	if err != nil {
		device.Fail(ctx, conn, e.identity.Name,
			fmt.Sprintf(`could not parse "%s" as Thermo5000 Command`, msg.Body()))
		return
	}

	delta := command.Value * commandScale
	if command.Name == types.CommandCoolBy {
		delta = -delta
	}

	e.mu.Lock()
	generator, known := e.generators[id]
	if !known {
		e.mu.Unlock()
		device.Fail(ctx, conn, e.identity.Name, fmt.Sprintf("cannot update generator for unknown id: %s", id))
		return
	}
	generator.coefficients.Constant += delta
	e.mu.Unlock()

	log.Info().Msgf("updated generator for '%s': %s", id, command)

	if err := wire.Ok().Write(conn); err != nil {
		log.Error().Err(err).Msg("failed to write command response")
	}
}

// Status reports the operational snapshot served on the ops endpoints.
func (e *Environment) Status() types.DeviceStatus {
	e.mu.Lock()
	generators := len(e.generators)
	e.mu.Unlock()

	return types.DeviceStatus{
		ID:         e.identity.ID,
		Name:       e.identity.Name,
		Model:      e.identity.Model,
		Address:    e.addr.String(),
		Generators: generators,
	}
}
