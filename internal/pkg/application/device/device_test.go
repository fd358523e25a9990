package device

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

type echoRole struct {
	identity Identity
}

func (r *echoRole) Identity() Identity {
	return r.identity
}

func (r *echoRole) Group() discovery.Group {
	return discovery.GroupSensor
}

func (r *echoRole) Handle(ctx context.Context, conn net.Conn) {
	req, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		Fail(ctx, conn, r.identity.Name, "cannot parse request")
		return
	}
	_ = wire.Ok().WithBody(req.StartLine()).Write(conn)
}

func TestServiceInfo(t *testing.T) {
	is := is.New(t)

	identity := Identity{ID: "a", Name: "My Thermo-5000 Sensor", Model: types.ModelThermo5000}
	svc := ServiceInfo(identity, net.ParseIP("192.168.2.16"), 8787)

	is.Equal(svc.Instance(), "a.thermo5000")
	is.Equal(svc.Host, "192.168.2.16")
	is.Equal(svc.Address().String(), "192.168.2.16:8787")
	is.Equal(svc.TXT(), []string{"id=a", "name=My Thermo-5000 Sensor", "model=thermo5000"})
}

func TestServeHandlesEachConnectionOnce(t *testing.T) {
	is := is.New(t)

	ln, addr, err := Listen()
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	role := &echoRole{identity: Identity{ID: "a", Name: "echo", Model: types.ModelThermo5000}}
	go func() { _ = Serve(ctx, role, ln) }()

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", addr.String())
		is.NoErr(err)

		is.NoErr(wire.Get("/data").Write(conn))
		reply, err := wire.Read(bufio.NewReader(conn))
		is.NoErr(err)
		is.Equal(reply.Body(), "GET /data HTTP/1.1")
		conn.Close()
	}
}

func TestFailWrites400WithExplanation(t *testing.T) {
	is := is.New(t)

	var sb strings.Builder
	Fail(context.Background(), &sb, "My Thermo-5000 Sensor", "cannot parse request: BLORP")

	reply, err := wire.Read(bufio.NewReader(strings.NewReader(sb.String())))
	is.NoErr(err)
	is.Equal(reply.StartLine(), "HTTP/1.1 400 Bad Request")
	is.Equal(reply.Body(), "cannot parse request: BLORP")
}

func TestLocalIPIsUsable(t *testing.T) {
	is := is.New(t)

	ip := LocalIP()
	is.True(ip != nil)
	is.True(ip.To4() != nil || ip.To16() != nil)
}
