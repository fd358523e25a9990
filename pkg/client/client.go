// Package client dials peers and performs one wire exchange per connection,
// which is how every device in the loop talks to every other device.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sensemesh/iot-control-loop/pkg/types"
	"github.com/sensemesh/iot-control-loop/pkg/wire"
)

const timeout = 5 * time.Second

// Exchange connects to addr, writes msg and reads the single reply. The
// connection is closed before returning.
func Exchange(ctx context.Context, addr types.Address, msg wire.Message) (wire.Message, error) {
	conn, err := dial(ctx, addr)
	if err != nil {
		return wire.Message{}, err
	}
	defer conn.Close()

	if err := msg.Write(conn); err != nil {
		return wire.Message{}, fmt.Errorf("writing to %s: %w", addr, err)
	}

	reply, err := wire.Read(bufio.NewReader(conn))
	if err != nil {
		return wire.Message{}, fmt.Errorf("reading reply from %s: %w", addr, err)
	}

	return reply, nil
}

// Send connects to addr, writes msg and closes the connection without
// waiting for a reply. Command delivery is fire and forget.
func Send(ctx context.Context, addr types.Address, msg wire.Message) error {
	conn, err := dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := msg.Write(conn); err != nil {
		return fmt.Errorf("writing to %s: %w", addr, err)
	}

	return nil
}

func dial(ctx context.Context, addr types.Address) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))

	return conn, nil
}
