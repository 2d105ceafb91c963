package printer

import (
	"context"
	"fmt"
)

// What a device scan is restricted to. An empty allow-list accepts any
// advertising device.
type DiscoverFilter struct {
	ServiceUUIDs []string
	// Exact advertised name to look for, ignored when empty
	Name string
}

// A device found while scanning
type Advertisement struct {
	Address string
	Name    string
}

// Scanner discovers and connects to printers over some wireless transport.
type Scanner interface {
	// Blocks until a device matching the filter advertises or ctx is done
	Discover(ctx context.Context, filter DiscoverFilter) (Advertisement, error)
	Connect(ctx context.Context, adv Advertisement) (Link, error)
}

// An open connection to a device
type Link interface {
	// Enumerates every service on the device along with its characteristics
	Services() ([]GattService, error)
	Disconnect() error
}

type GattService struct {
	UUID            string
	Characteristics []Characteristic
}

type Characteristic interface {
	UUID() string
	Write(chunk []byte) error
	Subscribe(handler func(data []byte)) error
}

// The outcome of matching enumerated services against the profile registry
type Resolution struct {
	Profile DeviceProfile
	Writer  Characteristic
	// nil when the profile has no notify characteristic or it wasn't found
	Notifier Characteristic
}

// ResolveProfile walks the registry in order and returns the first profile
// whose write characteristic is exposed by one of the services. The notify
// characteristic is looked up on the same service as the writer.
func ResolveProfile(services []GattService, registry *Registry) (Resolution, error) {
	for _, p := range registry.Profiles() {
		for _, s := range services {
			writer := findCharacteristic(s, p.WriteUUID)
			if writer == nil {
				continue
			}
			return Resolution{
				Profile:  p,
				Writer:   writer,
				Notifier: findCharacteristic(s, p.NotifyUUID),
			}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w (searched %d services)", ErrProfileNotFound, len(services))
}

func findCharacteristic(s GattService, u string) Characteristic {
	for _, c := range s.Characteristics {
		if sameUUID(c.UUID(), u) {
			return c
		}
	}
	return nil
}
