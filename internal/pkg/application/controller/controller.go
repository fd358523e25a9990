// Package controller closes the loop: it discovers sensors and actuators,
// polls every known sensor for its latest datum, assesses each reading, and
// commands the actuator paired with the sensor whenever a correction is
// needed. It also serves a small web UI over the same socket.
package controller

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/client"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

const (
	// pollDelay gives the browse workers a head start before the first poll.
	pollDelay    = 100 * time.Millisecond
	pollInterval = 50 * time.Millisecond
	bufferSize   = 500
)

type Controller struct {
	identity  device.Identity
	addr      types.Address
	container bool

	sensors   *discovery.Registry
	actuators *discovery.Registry

	mu        sync.Mutex
	buffers   map[types.ID]*types.RingBuffer[types.Datum]
	overrides map[types.ID]Assessor
	defaults  map[types.Model]Assessor
}

// New builds a controller. In container mode the web UI tells the browser
// to reach the controller through the published localhost port instead of
// the container's own address.
func New(id types.ID, name types.Name, container bool) *Controller {
	return &Controller{
		identity:  device.Identity{ID: id, Name: name, Model: types.ModelController},
		container: container,
		sensors:   discovery.NewRegistry(),
		actuators: discovery.NewRegistry(),
		buffers:   map[types.ID]*types.RingBuffer[types.Datum]{},
		overrides: map[types.ID]Assessor{},
		defaults: map[types.Model]Assessor{
			types.ModelThermo5000: Thermo5000Assessor,
		},
	}
}

func (c *Controller) Identity() device.Identity {
	return c.identity
}

func (c *Controller) Group() discovery.Group {
	return discovery.GroupController
}

// Sensors is the registry of discovered sensors.
func (c *Controller) Sensors() *discovery.Registry {
	return c.sensors
}

// Actuators is the registry of discovered actuators.
func (c *Controller) Actuators() *discovery.Registry {
	return c.actuators
}

// OverrideAssessor pins an assessor to one device id, taking precedence
// over the per-model defaults.
func (c *Controller) OverrideAssessor(id types.ID, a Assessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[id] = a
}

// Run advertises the controller, starts discovery and polling, and serves
// requests until ctx is done.
func (c *Controller) Run(ctx context.Context, ip net.IP, port int) error {
	c.addr = types.NewAddress(ip.String(), port)

	c.Discover(ctx)
	go c.Poll(ctx)

	return device.Respond(ctx, c, ip, port)
}

// Discover watches the sensor and actuator groups for as long as ctx lives.
// Devices come and go, so unlike the single-peer roles the controller never
// stops browsing.
func (c *Controller) Discover(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx)

	go func() {
		err := discovery.Browse(ctx, discovery.GroupSensor, func(svc discovery.Service) {
			log.Info().Msgf("\"%s\" discovered sensor \"%s\" at %s", c.identity.Name, svc.Name, svc.Address())
			c.sensors.Save(svc)
		})
		if err != nil {
			log.Error().Err(err).Msg("sensor discovery failed")
		}
	}()

	go func() {
		err := discovery.Browse(ctx, discovery.GroupActuator, func(svc discovery.Service) {
			log.Info().Msgf("\"%s\" discovered actuator \"%s\" at %s", c.identity.Name, svc.Name, svc.Address())
			c.actuators.Save(svc)
		})
		if err != nil {
			log.Error().Err(err).Msg("actuator discovery failed")
		}
	}()
}

// Poll drives the feedback loop: on every tick it asks each known sensor
// for its latest datum, records it, and reacts to it.
func (c *Controller) Poll(ctx context.Context) {
	timer := time.NewTimer(pollDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for id, svc := range c.sensors.Snapshot() {
			c.pollSensor(ctx, id, svc)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) pollSensor(ctx context.Context, id types.ID, svc discovery.Service) {
	log := logging.GetLoggerFromContext(ctx).With().Str("sensor", id.String()).Logger()

	reply, err := client.Exchange(ctx, svc.Address(), wire.Get("/datum"))
	if err != nil {
		log.Error().Err(err).Msg("failed to poll sensor")
		return
	}

	datums, err := types.ParseDatums(reply.Body())
	if err != nil {
		log.Error().Msgf("cannot parse '%s' as Datum array", reply.Body())
		return
	}
	if len(datums) == 0 {
		log.Debug().Msg("sensor has no data yet")
		return
	}

	datum := datums[0]
	c.record(id, datum)

	assessor, ok := c.assessorFor(id, svc.Model)
	if !ok {
		log.Debug().Msgf("no assessor for model '%s'", svc.Model)
		return
	}

	command, ok := assessor(datum)
	if !ok {
		return
	}

	actuator, ok := c.actuators.Get(id)
	if !ok {
		log.Debug().Msg("no actuator paired with this sensor")
		return
	}

	if err := client.Send(ctx, actuator.Address(), wire.Post("/command").WithBody(command.String())); err != nil {
		log.Error().Err(err).Msg("failed to command actuator")
		return
	}

	log.Info().Msgf("commanded \"%s\": %s", actuator.Name, command)
}

func (c *Controller) record(id types.ID, d types.Datum) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buffer, ok := c.buffers[id]
	if !ok {
		buffer = types.NewRingBuffer[types.Datum](bufferSize)
		c.buffers[id] = buffer
	}
	buffer.Push(d)
}

// assessorFor picks the assessor for a device: an id override wins over the
// model default.
func (c *Controller) assessorFor(id types.ID, model types.Model) (Assessor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.overrides[id]; ok {
		return a, true
	}
	a, ok := c.defaults[model]
	return a, ok
}

func (c *Controller) Handle(ctx context.Context, conn net.Conn) {
	log := logging.GetLoggerFromContext(ctx)

	msg, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		device.Fail(ctx, conn, c.identity.Name, "unable to read Message from stream")
		return
	}

	var reply wire.Message
	switch msg.StartLine() {
	case "GET /data HTTP/1.1":
		reply = wire.Ok().WithBody(c.pages("data", false))
	case "GET /datum HTTP/1.1":
		reply = wire.Ok().WithBody(c.pages("datum", true))
	case "GET /ui HTTP/1.1":
		page, err := c.renderUI()
		if err != nil {
			device.Fail(ctx, conn, c.identity.Name, "could not render ui")
			return
		}
		reply = wire.Ok().
			WithHeader(wire.HeaderContentType, "text/html; charset=utf-8").
			WithBody(page)
	default:
		device.Fail(ctx, conn, c.identity.Name, "cannot parse request: "+msg.StartLine())
		return
	}

	if err := reply.Write(conn); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// pages renders one JSON entry per known sensor: its id and its buffered
// datums under the given field name, the whole buffer or just the newest.
// Sensors are listed in id order; a sensor with no data yet gets an empty
// array.
func (c *Controller) pages(field string, newestOnly bool) string {
	ids := c.sensors.IDs()

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := lo.Map(ids, func(id types.ID, _ int) string {
		var datums []types.Datum
		if buffer, ok := c.buffers[id]; ok {
			if newestOnly {
				if newest, ok := buffer.Newest(); ok {
					datums = []types.Datum{newest}
				}
			} else {
				datums = buffer.Items()
			}
		}

		bodies := lo.Map(datums, func(d types.Datum, _ int) string {
			return d.String()
		})
		return fmt.Sprintf(`{"id":"%s","%s":[%s]}`, id, field, strings.Join(bodies, ","))
	})

	return "[" + strings.Join(entries, ",") + "]"
}

// Status reports the operational snapshot served on the ops endpoints.
func (c *Controller) Status() types.DeviceStatus {
	peers := map[string]int{
		"sensors":   c.sensors.Len(),
		"actuators": c.actuators.Len(),
	}

	c.mu.Lock()
	buffered := make(map[string]int, len(c.buffers))
	for id, buffer := range c.buffers {
		buffered[id.String()] = buffer.Len()
	}
	c.mu.Unlock()

	return types.DeviceStatus{
		ID:       c.identity.ID,
		Name:     c.identity.Name,
		Model:    c.identity.Model,
		Address:  c.addr.String(),
		Peers:    peers,
		Buffered: buffered,
	}
}
