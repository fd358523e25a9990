// Package device carries the plumbing every role shares: identity, the
// mDNS advertisement, the TCP accept loop and failure responses.
package device

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/discovery"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

// Identity names a device: its unique id, its display name and its model.
type Identity struct {
	ID    types.ID
	Name  types.Name
	Model types.Model
}

// Role is a device that can join the network. It advertises itself in one
// group and handles one wire exchange per accepted connection. Handle must
// write exactly one response; the caller closes the connection.
type Role interface {
	Identity() Identity
	Group() discovery.Group
	Handle(ctx context.Context, conn net.Conn)
}

// ServiceInfo builds the advertisement record for identity at ip:port. It
// performs no I/O; the SRV host is simply the textual IP, which keeps the
// record self-contained.
func ServiceInfo(identity Identity, ip net.IP, port int) discovery.Service {
	return discovery.Service{
		ID:    identity.ID,
		Name:  identity.Name,
		Model: identity.Model,
		Host:  ip.String(),
		IP:    ip,
		Port:  port,
	}
}

// Respond advertises role in its group, binds ip:port and serves incoming
// connections until ctx is done.
func Respond(ctx context.Context, role Role, ip net.IP, port int) error {
	log := logging.GetLoggerFromContext(ctx)
	identity := role.Identity()
	svc := ServiceInfo(identity, ip, port)

	log.Info().Msgf("registering \"%s\" via mDNS as %s.%s", identity.Name, svc.Instance(), role.Group())

	server, err := discovery.Advertise(svc, role.Group())
	if err != nil {
		return err
	}
	defer server.Shutdown()

	ln, err := net.Listen("tcp", svc.Address().String())
	if err != nil {
		return fmt.Errorf("binding %s: %w", svc.Address(), err)
	}

	log.Info().Msgf("binding new TCP listener for \"%s\" at %s", identity.Name, svc.Address())

	return Serve(ctx, role, ln)
}

// Serve accepts connections from ln until ctx is done, handling each one
// exactly once in its own goroutine.
func Serve(ctx context.Context, role Role, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		go func() {
			defer conn.Close()
			role.Handle(ctx, conn)
		}()
	}
}

// Fail logs a handler failure and answers 400 with the explanation as body.
func Fail(ctx context.Context, w io.Writer, name types.Name, msg string) {
	log := logging.GetLoggerFromContext(ctx)
	log.Error().Str("device", name.String()).Msg(msg)

	if err := wire.BadRequest(msg).Write(w); err != nil {
		log.Error().Err(err).Msg("failed to write failure response")
	}
}

// LocalIP finds the primary outbound IPv4 address of this host. Dialing UDP
// sends no packets; it only selects the interface that routes externally.
// Hosts without a route get loopback, which still works for single-machine
// demos.
func LocalIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP
	}
	return net.IPv4(127, 0, 0, 1)
}

// Listen opens an ephemeral loopback listener, used by the demo and tests
// to run the whole loop on one machine without multicast.
func Listen() (net.Listener, types.Address, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("binding loopback listener: %w", err)
	}
	return ln, types.Address(ln.Addr().String()), nil
}
