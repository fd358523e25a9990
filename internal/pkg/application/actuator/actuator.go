// Package actuator implements the mutating half of the loop. An actuator
// owns no state of its own: it accepts commands and forwards them to the
// environment stamped with its own identity, so the environment knows which
// generator to adjust.
package actuator

import (
	"bufio"
	"context"
	"net"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/client"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

type Actuator struct {
	identity device.Identity
	addr     types.Address

	environment discovery.Slot
}

func New(id types.ID, name types.Name, model types.Model) *Actuator {
	return &Actuator{identity: device.Identity{ID: id, Name: name, Model: model}}
}

// NewThermo5000 builds the canonical temperature actuator. Pairing it with
// a sensor means giving both the same id.
func NewThermo5000(id types.ID, name types.Name) *Actuator {
	return New(id, name, types.ModelThermo5000)
}

func (a *Actuator) Identity() device.Identity {
	return a.identity
}

func (a *Actuator) Group() discovery.Group {
	return discovery.GroupActuator
}

func (a *Actuator) SetEnvironment(svc discovery.Service) {
	a.environment.Save(svc)
}

// Run advertises the actuator, starts discovery, and serves requests until
// ctx is done.
func (a *Actuator) Run(ctx context.Context, ip net.IP, port int) error {
	a.addr = types.NewAddress(ip.String(), port)

	a.Discover(ctx)

	return device.Respond(ctx, a, ip, port)
}

// Discover browses for the environment, saving the first peer seen.
func (a *Actuator) Discover(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx)

	go func() {
		err := discovery.BrowseOnce(ctx, discovery.GroupEnvironment, func(svc discovery.Service) {
			log.Info().Msgf("\"%s\" discovered environment \"%s\"", a.identity.Name, svc.Name)
			a.SetEnvironment(svc)
		})
		if err != nil {
			log.Error().Err(err).Msg("environment discovery failed")
		}
	}()
}

// Handle accepts POST /command and forwards the body to the environment on
// a fresh connection, stamped with this actuator's id and model. The caller
// gets a 200 ack as soon as the forward has been attempted; delivery is
// fire and forget, so forwarding failures are only logged.
func (a *Actuator) Handle(ctx context.Context, conn net.Conn) {
	log := logging.GetLoggerFromContext(ctx)

	msg, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		device.Fail(ctx, conn, a.identity.Name, "unable to read Message from stream")
		return
	}

	if msg.StartLine() != "POST /command HTTP/1.1" {
		device.Fail(ctx, conn, a.identity.Name, "cannot parse request: "+msg.StartLine())
		return
	}

	environment, ok := a.environment.Get()
	if !ok {
		device.Fail(ctx, conn, a.identity.Name, "could not find environment")
		return
	}

	forward := wire.Post("/command").
		WithHeaders(map[string]string{
			"id":    a.identity.ID.String(),
			"model": a.identity.Model.String(),
		}).
		WithBody(msg.Body())

	if err := client.Send(ctx, environment.Address(), forward); err != nil {
		log.Error().Err(err).Msg("failed to forward command to environment")
	} else {
		log.Debug().Msgf("\"%s\" forwarded command: %s", a.identity.Name, msg.Body())
	}

	if err := wire.Ok().Write(conn); err != nil {
		log.Error().Err(err).Msg("failed to write command ack")
	}
}

// Status reports the operational snapshot served on the ops endpoints.
func (a *Actuator) Status() types.DeviceStatus {
	peers := map[string]int{"environment": 0}
	if _, ok := a.environment.Get(); ok {
		peers["environment"] = 1
	}

	return types.DeviceStatus{
		ID:      a.identity.ID,
		Name:    a.identity.Name,
		Model:   a.identity.Model,
		Address: a.addr.String(),
		Peers:   peers,
	}
}
