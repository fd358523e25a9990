// Package discovery lets devices find each other over mDNS-SD. Every device
// advertises itself in one service group and browses the groups it needs;
// resolved peers are handed to save hooks that feed a Registry or a Slot.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/pkg/types"
)

// Group is the mDNS service group a device advertises under.
type Group string

const (
	GroupSensor      Group = "_sensor._tcp"
	GroupActuator    Group = "_actuator._tcp"
	GroupController  Group = "_controller._tcp"
	GroupEnvironment Group = "_environment._tcp"

	domain = "local."
)

func (g Group) String() string {
	return string(g)
}

// Service is one advertised device: who it is and where to dial it.
type Service struct {
	ID         types.ID
	Name       types.Name
	Model      types.Model
	Host       string
	IP         net.IP
	Port       int
	Properties map[string]string
}

// Instance is the advertised mDNS instance name, "<id>.<model>".
func (s Service) Instance() string {
	return fmt.Sprintf("%s.%s", s.ID, s.Model)
}

// Address is the dialable host:port of the service.
func (s Service) Address() types.Address {
	return types.NewAddress(s.IP.String(), s.Port)
}

// TXT renders the advertised TXT records.
func (s Service) TXT() []string {
	return []string{
		"id=" + s.ID.String(),
		"name=" + s.Name.String(),
		"model=" + s.Model.String(),
	}
}

// FromEntry extracts a Service from a resolved mDNS entry. IPv4 addresses
// are preferred over IPv6. Entries without an address or an id TXT record
// are rejected; an unparseable model degrades to ModelUnsupported so the
// peer stays visible.
func FromEntry(entry *zeroconf.ServiceEntry) (Service, error) {
	if entry == nil {
		return Service{}, errors.New("nil service entry")
	}

	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return Service{}, fmt.Errorf("entry '%s' carries no address", entry.Instance)
	}

	props := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		if k, v, ok := strings.Cut(txt, "="); ok {
			props[k] = v
		}
	}

	if props["id"] == "" {
		return Service{}, fmt.Errorf("entry '%s' carries no id", entry.Instance)
	}

	model, err := types.ParseModel(props["model"])
	if err != nil {
		model = types.ModelUnsupported
	}

	return Service{
		ID:         types.ID(props["id"]),
		Name:       types.Name(props["name"]),
		Model:      model,
		Host:       entry.HostName,
		IP:         ip,
		Port:       entry.Port,
		Properties: props,
	}, nil
}

// Advertise registers svc in group on the local network. Shutting down the
// returned server withdraws the advertisement.
func Advertise(svc Service, group Group) (*zeroconf.Server, error) {
	server, err := zeroconf.RegisterProxy(
		svc.Instance(),
		group.String(),
		domain,
		svc.Port,
		svc.Host,
		[]string{svc.IP.String()},
		svc.TXT(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("registering '%s' in %s: %w", svc.Instance(), group, err)
	}

	return server, nil
}

// Browse watches group until ctx is done, passing every resolved peer to
// save. An error tears down this worker only; the rest of the device keeps
// running.
func Browse(ctx context.Context, group Group, save func(Service)) error {
	return browse(ctx, group, save)
}

// BrowseOnce browses group until one peer has been saved, then stops.
func BrowseOnce(ctx context.Context, group Group, save func(Service)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	return browse(ctx, group, func(svc Service) {
		once.Do(func() {
			save(svc)
			cancel()
		})
	})
}

func browse(ctx context.Context, group Group, save func(Service)) error {
	log := logging.GetLoggerFromContext(ctx).With().Str("group", group.String()).Logger()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to create mDNS resolver")
		return fmt.Errorf("creating mDNS resolver: %w", err)
	}

	// Buffered so the resolver never blocks on a slow consumer.
	entries := make(chan *zeroconf.ServiceEntry, 10)

	go func() {
		for entry := range entries {
			svc, err := FromEntry(entry)
			if err != nil {
				log.Debug().Msgf("ignoring mDNS entry: %s", err.Error())
				continue
			}
			save(svc)
		}
	}()

	if err := resolver.Browse(ctx, group.String(), domain, entries); err != nil {
		log.Error().Err(err).Msg("failed to browse")
		return fmt.Errorf("browsing %s: %w", group, err)
	}

	<-ctx.Done()
	return nil
}
