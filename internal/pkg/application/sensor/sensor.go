// Package sensor implements the observing half of the loop: it polls the
// environment for datums on a fixed cadence, keeps a short history, and
// serves that history to whoever asks.
package sensor

import (
	"bufio"
	"context"
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
	pollInterval = 50 * time.Millisecond
	bufferSize   = 10
)

type Sensor struct {
	identity device.Identity
	kind     types.Kind
	unit     types.Unit
	addr     types.Address

	environment discovery.Slot
	controller  discovery.Slot

	mu     sync.Mutex
	buffer *types.RingBuffer[types.Datum]
}

func New(id types.ID, name types.Name, model types.Model, kind types.Kind, unit types.Unit) *Sensor {
	return &Sensor{
		identity: device.Identity{ID: id, Name: name, Model: model},
		kind:     kind,
		unit:     unit,
		buffer:   types.NewRingBuffer[types.Datum](bufferSize),
	}
}

// NewThermo5000 builds the canonical temperature sensor.
func NewThermo5000(id types.ID, name types.Name) *Sensor {
	return New(id, name, types.ModelThermo5000, types.KindFloat, types.DegreesC)
}

func (s *Sensor) Identity() device.Identity {
	return s.identity
}

func (s *Sensor) Group() discovery.Group {
	return discovery.GroupSensor
}

func (s *Sensor) SetEnvironment(svc discovery.Service) {
	s.environment.Save(svc)
}

func (s *Sensor) SetController(svc discovery.Service) {
	s.controller.Save(svc)
}

// Run advertises the sensor, starts discovery and polling, and serves
// requests until ctx is done.
func (s *Sensor) Run(ctx context.Context, ip net.IP, port int) error {
	s.addr = types.NewAddress(ip.String(), port)

	s.Discover(ctx)
	go s.Poll(ctx)

	return device.Respond(ctx, s, ip, port)
}

// Discover browses for the environment and the controller, saving the first
// peer seen in each group.
func (s *Sensor) Discover(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx)

	go func() {
		err := discovery.BrowseOnce(ctx, discovery.GroupEnvironment, func(svc discovery.Service) {
			log.Info().Msgf("\"%s\" discovered environment \"%s\"", s.identity.Name, svc.Name)
			s.SetEnvironment(svc)
		})
		if err != nil {
			log.Error().Err(err).Msg("environment discovery failed")
		}
	}()

	go func() {
		err := discovery.BrowseOnce(ctx, discovery.GroupController, func(svc discovery.Service) {
			log.Info().Msgf("\"%s\" discovered controller \"%s\"", s.identity.Name, svc.Name)
			s.SetController(svc)
		})
		if err != nil {
			log.Error().Err(err).Msg("controller discovery failed")
		}
	}()
}

// Poll samples the environment on a fixed cadence. The request always
// carries the kind and unit headers, so the first poll registers this
// sensor with a cold environment. Ticks before discovery, transport
// failures and unparseable bodies are logged and dropped; the next tick
// retries.
func (s *Sensor) Poll(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx).With().Str("device", s.identity.Name.String()).Logger()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		environment, ok := s.environment.Get()
		if !ok {
			log.Debug().Msg("cannot poll: environment not yet discovered")
			continue
		}

		req := wire.Get("/datum/" + s.identity.ID.String()).WithHeaders(map[string]string{
			"kind": s.kind.String(),
			"unit": s.unit.String(),
		})

		reply, err := client.Exchange(ctx, environment.Address(), req)
		if err != nil {
			log.Error().Err(err).Msg("failed to poll environment")
			continue
		}

		datum, err := types.ParseDatum(reply.Body())
		if err != nil {
			log.Error().Msgf("cannot parse '%s' as Datum", reply.Body())
			continue
		}

		s.mu.Lock()
		s.buffer.Push(datum)
		s.mu.Unlock()
	}
}

func (s *Sensor) Handle(ctx context.Context, conn net.Conn) {
	msg, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		device.Fail(ctx, conn, s.identity.Name, "unable to read Message from stream")
		return
	}

	var body string
	switch msg.StartLine() {
	case "GET /data HTTP/1.1":
		body = encodeDatums(s.History())
	case "GET /datum HTTP/1.1":
		body = encodeDatums(s.Latest())
	default:
		device.Fail(ctx, conn, s.identity.Name, "cannot parse request: "+msg.StartLine())
		return
	}

	if err := wire.Ok().WithBody(body).Write(conn); err != nil {
		log := logging.GetLoggerFromContext(ctx)
		log.Error().Err(err).Msg("failed to write data response")
	}
}

// History returns the buffered datums, newest first.
func (s *Sensor) History() []types.Datum {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Items()
}

// Latest returns the newest datum alone, or an empty slice.
func (s *Sensor) Latest() []types.Datum {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.buffer.Newest(); ok {
		return []types.Datum{d}
	}
	return []types.Datum{}
}

// Status reports the operational snapshot served on the ops endpoints.
func (s *Sensor) Status() types.DeviceStatus {
	peers := map[string]int{"environment": 0, "controller": 0}
	if _, ok := s.environment.Get(); ok {
		peers["environment"] = 1
	}
	if _, ok := s.controller.Get(); ok {
		peers["controller"] = 1
	}

	s.mu.Lock()
	buffered := s.buffer.Len()
	s.mu.Unlock()

	return types.DeviceStatus{
		ID:       s.identity.ID,
		Name:     s.identity.Name,
		Model:    s.identity.Model,
		Address:  s.addr.String(),
		Peers:    peers,
		Buffered: map[string]int{s.identity.ID.String(): buffered},
	}
}

func encodeDatums(datums []types.Datum) string {
	bodies := lo.Map(datums, func(d types.Datum, _ int) string {
		return d.String()
	})
	return "[" + strings.Join(bodies, ",") + "]"
}
