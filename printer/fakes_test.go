package printer

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeCharacteristic struct {
	uuid string

	mu           sync.Mutex
	writes       [][]byte
	writeErr     error
	subscribeErr error
	handler      func([]byte)
}

func (c *fakeCharacteristic) UUID() string {
	return c.uuid
}

func (c *fakeCharacteristic) Write(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, append([]byte{}, chunk...))
	return nil
}

func (c *fakeCharacteristic) Subscribe(handler func([]byte)) error {
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.handler = handler
	return nil
}

func (c *fakeCharacteristic) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []byte
	for _, w := range c.writes {
		all = append(all, w...)
	}
	return all
}

type fakeLink struct {
	services     []GattService
	servicesErr  error
	disconnected int
}

func (l *fakeLink) Services() ([]GattService, error) {
	return l.services, l.servicesErr
}

func (l *fakeLink) Disconnect() error {
	l.disconnected++
	return nil
}

type fakeScanner struct {
	adv         Advertisement
	discoverErr error
	connectErr  error
	link        *fakeLink
	// called from Connect before the link is returned
	onConnect func()

	filters []DiscoverFilter
}

func (s *fakeScanner) Discover(ctx context.Context, filter DiscoverFilter) (Advertisement, error) {
	s.filters = append(s.filters, filter)
	if s.discoverErr != nil {
		return Advertisement{}, s.discoverErr
	}
	return s.adv, nil
}

func (s *fakeScanner) Connect(ctx context.Context, adv Advertisement) (Link, error) {
	if s.onConnect != nil {
		s.onConnect()
	}
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s.link, nil
}

// A Phomemo T02 exposing its write and notify characteristics
func aPhomemoLink() (*fakeLink, *fakeCharacteristic, *fakeCharacteristic) {
	writer := &fakeCharacteristic{uuid: bleUUID(0xff02)}
	notifier := &fakeCharacteristic{uuid: bleUUID(0xff03)}
	link := &fakeLink{services: []GattService{
		{UUID: bleUUID(0x1800)},
		{UUID: bleUUID(0xff00), Characteristics: []Characteristic{
			&fakeCharacteristic{uuid: bleUUID(0xff01)},
			writer,
			notifier,
		}},
	}}
	return link, writer, notifier
}

func aTestSession(scanner Scanner) *Session {
	transport := &Transport{Sleep: func(_ time.Duration) {}}
	return NewSession(scanner, DefaultRegistry(), transport, DiscoverFilter{})
}

var errFake = errors.New("fake failure")
