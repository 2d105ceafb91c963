package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BluetoothScanner finds and connects to printers over Bluetooth LE using the
// host's default adapter.
type BluetoothScanner struct {
	adapter *bluetooth.Adapter

	mu        sync.Mutex
	addresses map[string]bluetooth.Address
}

func NewBluetoothScanner() (*BluetoothScanner, error) {
	adapter := bluetooth.DefaultAdapter

	if err := adapter.Enable(); err != nil {
		slog.Error("Failed to enable Bluetooth", "err", err)
		return nil, err
	}

	adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if connected {
			slog.Debug("Link connected", "address", d.Address.String())
		} else {
			// not acted upon, the next write to the printer will fail instead
			slog.Info("Link disconnected", "address", d.Address.String())
		}
	})

	return &BluetoothScanner{
		adapter:   adapter,
		addresses: map[string]bluetooth.Address{},
	}, nil
}

func matchesFilter(result bluetooth.ScanResult, name string, services []bluetooth.UUID) bool {
	if name != "" && result.LocalName() != name {
		return false
	}
	if len(services) == 0 {
		return true
	}
	for _, u := range services {
		if result.HasServiceUUID(u) {
			return true
		}
	}
	return false
}

func (b *BluetoothScanner) Discover(ctx context.Context, filter DiscoverFilter) (Advertisement, error) {
	services := make([]bluetooth.UUID, 0, len(filter.ServiceUUIDs))
	for _, s := range filter.ServiceUUIDs {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return Advertisement{}, fmt.Errorf("Invalid service UUID %q:\n%w", s, err)
		}
		services = append(services, u)
	}

	devices := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matchesFilter(result, filter.Name, services) {
				return
			}
			select {
			case devices <- result:
				adapter.StopScan()
			default:
			}
		})
		if err != nil {
			slog.Error("Failed to scan for devices", "err", err)
			scanErr <- err
		}
	}()

	select {
	case dev := <-devices:
		address := dev.Address.String()
		b.mu.Lock()
		b.addresses[address] = dev.Address
		b.mu.Unlock()
		return Advertisement{Address: address, Name: dev.LocalName()}, nil
	case err := <-scanErr:
		return Advertisement{}, err
	case <-ctx.Done():
		b.adapter.StopScan()
		return Advertisement{}, fmt.Errorf("No devices found:\n%w", ctx.Err())
	}
}

func (b *BluetoothScanner) Connect(ctx context.Context, adv Advertisement) (Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	address, ok := b.addresses[adv.Address]
	b.mu.Unlock()
	if !ok {
		return nil, errors.New("Device hasn't been discovered")
	}

	device, err := b.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		slog.Error("Failed to connect to device", "err", err)
		return nil, err
	}
	return &bluetoothLink{device: device}, nil
}

type bluetoothLink struct {
	device bluetooth.Device
}

func (l *bluetoothLink) Services() ([]GattService, error) {
	services, err := l.device.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}

	result := make([]GattService, 0, len(services))
	for _, s := range services {
		characteristics, err := s.DiscoverCharacteristics(nil)
		if err != nil {
			// some services refuse enumeration, they can't be the printer's
			slog.Debug("Failed to discover characteristics", "service", s.UUID().String(), "err", err)
			continue
		}

		gs := GattService{UUID: s.UUID().String()}
		for _, c := range characteristics {
			gs.Characteristics = append(gs.Characteristics, &bluetoothCharacteristic{c})
		}
		result = append(result, gs)
	}
	return result, nil
}

func (l *bluetoothLink) Disconnect() error {
	return l.device.Disconnect()
}

type bluetoothCharacteristic struct {
	c bluetooth.DeviceCharacteristic
}

func (c *bluetoothCharacteristic) UUID() string {
	return c.c.UUID().String()
}

func (c *bluetoothCharacteristic) Write(chunk []byte) error {
	_, err := c.c.WriteWithoutResponse(chunk)
	return err
}

func (c *bluetoothCharacteristic) Subscribe(handler func(data []byte)) error {
	return c.c.EnableNotifications(handler)
}
