package types

import (
	"fmt"
	"net"
	"strconv"
)

// ID identifies a device or a generator. IDs are opaque tokens; the demo
// devices use UUID strings but any non-empty token works.
type ID string

func (i ID) String() string {
	return string(i)
}

// Name is a human readable device name. It carries no semantics.
type Name string

func (n Name) String() string {
	return string(n)
}

// Address is the dialable host:port of a device on the local network.
type Address string

func NewAddress(host string, port int) Address {
	return Address(net.JoinHostPort(host, strconv.Itoa(port)))
}

func (a Address) String() string {
	return string(a)
}

// Model identifies what a device is, and therefore which commands and datum
// shapes it understands. The set of models is closed.
type Model string

const (
	ModelController  Model = "controller"
	ModelEnvironment Model = "environment"
	ModelThermo5000  Model = "thermo5000"
	ModelUnsupported Model = "unsupported"
)

func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelController, ModelEnvironment, ModelThermo5000, ModelUnsupported:
		return Model(s), nil
	default:
		return "", fmt.Errorf("unknown Model '%s'", s)
	}
}

func (m Model) String() string {
	return string(m)
}

// Label returns the display name of the model.
func (m Model) Label() string {
	switch m {
	case ModelController:
		return "Controller"
	case ModelEnvironment:
		return "Environment"
	case ModelThermo5000:
		return "Thermo-5000"
	default:
		return "<unsupported>"
	}
}
