package controller

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/sensemesh/iot-control-loop/internal/pkg/application/device"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/pkg/client"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

func startController(t *testing.T, container bool) (*Controller, types.Address) {
	t.Helper()
	is := is.New(t)

	ln, addr, err := device.Listen()
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := New("controller", "Controller", container)
	c.addr = addr
	go func() { _ = device.Serve(ctx, c, ln) }()

	return c, addr
}

func discovered(id types.ID, model types.Model) discovery.Service {
	return discovery.Service{ID: id, Model: model}
}

func TestDataPagesEverySensorNewestFirst(t *testing.T) {
	is := is.New(t)
	c, addr := startController(t, false)

	c.sensors.Save(discovered("s1", types.ModelThermo5000))
	c.sensors.Save(discovered("s2", types.ModelThermo5000))

	ts := time.Date(2024, 1, 3, 18, 3, 21, 0, time.UTC)
	first := types.NewDatum(types.Float(25.5), types.DegreesC, ts)
	second := types.NewDatum(types.Float(26.5), types.DegreesC, ts.Add(time.Second))
	c.record("s1", first)
	c.record("s1", second)

	reply, err := client.Exchange(context.Background(), addr, wire.Get("/data"))
	is.NoErr(err)

	is.Equal(reply.StartLine(), "HTTP/1.1 200 OK")
	is.Equal(reply.Body(),
		`[{"id":"s1","data":[`+second.String()+`,`+first.String()+`]},{"id":"s2","data":[]}]`)
}

func TestDatumPagesTheNewestReadingOnly(t *testing.T) {
	is := is.New(t)
	c, addr := startController(t, false)

	c.sensors.Save(discovered("s1", types.ModelThermo5000))

	ts := time.Date(2024, 1, 3, 18, 3, 21, 0, time.UTC)
	first := types.NewDatum(types.Float(25.5), types.DegreesC, ts)
	second := types.NewDatum(types.Float(26.5), types.DegreesC, ts.Add(time.Second))
	c.record("s1", first)
	c.record("s1", second)

	reply, err := client.Exchange(context.Background(), addr, wire.Get("/datum"))
	is.NoErr(err)

	is.Equal(reply.Body(), `[{"id":"s1","datum":[`+second.String()+`]}]`)
}

func TestNoSensorsPageToAnEmptyArray(t *testing.T) {
	is := is.New(t)
	_, addr := startController(t, false)

	for _, path := range []string{"/data", "/datum"} {
		reply, err := client.Exchange(context.Background(), addr, wire.Get(path))
		is.NoErr(err)
		is.Equal(reply.Body(), "[]")
	}
}

func TestUIPollsTheControllersOwnAddress(t *testing.T) {
	is := is.New(t)
	_, addr := startController(t, false)

	reply, err := client.Exchange(context.Background(), addr, wire.Get("/ui"))
	is.NoErr(err)

	is.Equal(reply.StartLine(), "HTTP/1.1 200 OK")
	contentType, _ := reply.Header(wire.HeaderContentType)
	is.Equal(contentType, "text/html; charset=utf-8")
	is.True(strings.Contains(reply.Body(), `const backend = "`+addr.String()+`";`))
}

func TestUIPollsThePublishedPortInContainerMode(t *testing.T) {
	is := is.New(t)
	_, addr := startController(t, true)

	reply, err := client.Exchange(context.Background(), addr, wire.Get("/ui"))
	is.NoErr(err)

	is.True(strings.Contains(reply.Body(), `const backend = "localhost:6565";`))
}

func TestUnroutableRequestIsRejected(t *testing.T) {
	is := is.New(t)
	_, addr := startController(t, false)

	reply, err := client.Exchange(context.Background(), addr, wire.Get("/nope"))
	is.NoErr(err)

	is.Equal(reply.StartLine(), "HTTP/1.1 400 Bad Request")
	is.Equal(reply.Body(), "cannot parse request: GET /nope HTTP/1.1")
}

func TestAssessorOverrideWinsOverModelDefault(t *testing.T) {
	is := is.New(t)

	c := New("controller", "Controller", false)
	c.OverrideAssessor("s1", func(types.Datum) (types.Command, bool) {
		return types.HeatBy(99), true
	})

	assessor, ok := c.assessorFor("s1", types.ModelThermo5000)
	is.True(ok)
	command, _ := assessor(types.Datum{})
	is.Equal(command, types.HeatBy(99))

	assessor, ok = c.assessorFor("s2", types.ModelThermo5000)
	is.True(ok)
	_, acted := assessor(reading(types.Float(25)))
	is.Equal(acted, false)

	_, ok = c.assessorFor("s2", types.ModelUnsupported)
	is.Equal(ok, false)
}

func TestStatusCountsPeersAndBuffers(t *testing.T) {
	is := is.New(t)

	c := New("controller", "Controller", false)
	c.sensors.Save(discovered("s1", types.ModelThermo5000))
	c.actuators.Save(discovered("s1", types.ModelThermo5000))
	c.record("s1", types.NewDatum(types.Float(25), types.DegreesC, time.Now()))
	c.record("s1", types.NewDatum(types.Float(26), types.DegreesC, time.Now()))

	status := c.Status()
	is.Equal(status.Model, types.ModelController)
	is.Equal(status.Peers["sensors"], 1)
	is.Equal(status.Peers["actuators"], 1)
	is.Equal(status.Buffered["s1"], 2)
}
