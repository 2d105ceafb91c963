// This package is built with the assumption that the server will only be
// connected to a single printer at a time; a Session owns that printer's
// link and write characteristic for as long as it's connected.
package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Name reported for devices that don't advertise one
const UnnamedDevice = "Unnamed printer"

// Summary of a single print, passed to observers registered with OnPrint
type PrintReport struct {
	JobID    string
	Device   string
	Model    string
	Rows     int
	Frames   int
	Bytes    int
	Started  time.Time
	Duration time.Duration
	Err      error
}

type Session struct {
	scanner   Scanner
	registry  *Registry
	transport *Transport
	filter    DiscoverFilter

	mu         sync.Mutex
	connected  bool
	link       Link
	writer     Characteristic
	profile    *DeviceProfile
	notifying  bool
	busy       bool
	info       DeviceInfo
	// State to return to once the busy job is done
	idleState  State
	generation int
	observers  []func(PrintReport)
}

func NewSession(scanner Scanner, registry *Registry, transport *Transport, filter DiscoverFilter) *Session {
	return &Session{
		scanner:   scanner,
		registry:  registry,
		transport: transport,
		filter:    filter,
		info:      DeviceInfo{State: Disconnected, BatteryLevel: -1},
	}
}

// Registers f to be called after every print attempt, successful or not.
func (s *Session) OnPrint(f func(PrintReport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, f)
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Returns the active device profile, if any
func (s *Session) Profile() (DeviceProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return DeviceProfile{}, false
	}
	return *s.profile, true
}

func (s *Session) Info() DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Connect finds a printer, connects to it and works out which device profile
// applies by looking for a known write characteristic. It returns the
// advertised name of the printer. Connecting an already connected session
// just returns the current name.
func (s *Session) Connect(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.connected {
		name := s.info.Name
		s.mu.Unlock()
		return name, nil
	}
	if s.info.State == Connecting {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: already connecting", ErrBusy)
	}
	s.info.State = Connecting
	generation := s.generation
	s.mu.Unlock()

	res, link, adv, err := s.connect(ctx)
	if err != nil {
		slog.Error("Couldn't connect to printer", "error", err)
		s.mu.Lock()
		if s.generation == generation {
			s.info.State = Disconnected
		}
		s.mu.Unlock()
		return "", fmt.Errorf("%w:\n%w", ErrConnectionFailed, err)
	}

	// enable notifications to receive battery/paper info etc, the printer
	// works fine without them
	notifying := false
	if res.Notifier != nil {
		if err := res.Notifier.Subscribe(s.handleNotification); err != nil {
			slog.Debug("Couldn't enable notifications", "error", err)
		} else {
			notifying = true
		}
	}

	name := adv.Name
	if name == "" {
		name = UnnamedDevice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		// Disconnect was called while we were still connecting
		link.Disconnect()
		return "", fmt.Errorf("%w: disconnected while connecting", ErrConnectionFailed)
	}
	profile := res.Profile
	s.connected = true
	s.link = link
	s.writer = res.Writer
	s.profile = &profile
	s.notifying = notifying
	s.info.State = Ready
	s.info.Name = name
	s.info.Model = profile.Model

	slog.Info("Connected to printer", "name", name, "address", adv.Address, "profile", profile.Model)
	return name, nil
}

func (s *Session) connect(ctx context.Context) (Resolution, Link, Advertisement, error) {
	slog.Debug("Scanning for printer...", "services", s.filter.ServiceUUIDs, "name", s.filter.Name)
	adv, err := s.scanner.Discover(ctx, s.filter)
	if err != nil {
		return Resolution{}, nil, adv, fmt.Errorf("Couldn't find a printer:\n%w", err)
	}
	slog.Info("Found device", "deviceName", adv.Name, "address", adv.Address)

	slog.Debug("Connecting to device...")
	link, err := s.scanner.Connect(ctx, adv)
	if err != nil {
		return Resolution{}, nil, adv, fmt.Errorf("Couldn't open link to %s:\n%w", adv.Address, err)
	}

	slog.Debug("Discovering services...")
	services, err := link.Services()
	if err != nil {
		link.Disconnect()
		return Resolution{}, nil, adv, fmt.Errorf("Couldn't discover services:\n%w", err)
	}

	res, err := ResolveProfile(services, s.registry)
	if err != nil {
		link.Disconnect()
		return Resolution{}, nil, adv, err
	}
	return res, link, adv, nil
}

// Disconnect closes the link if there is one and always leaves the session
// disconnected. Calling it on a disconnected session does nothing.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.link != nil {
		if err := s.link.Disconnect(); err != nil {
			slog.Error("Couldn't disconnect cleanly", "error", err)
		} else {
			slog.Info("Disconnected from printer", "name", s.info.Name)
		}
	}

	s.connected = false
	s.link = nil
	s.writer = nil
	s.profile = nil
	s.notifying = false
	s.generation++
	s.info = DeviceInfo{State: Disconnected, BatteryLevel: -1}
}

// acquire marks the session busy and returns what's needed to write to it.
func (s *Session) acquire() (DeviceProfile, ChunkWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return DeviceProfile{}, nil, ErrNotConfigured
	}
	if s.busy {
		return DeviceProfile{}, nil, ErrBusy
	}
	s.busy = true
	s.idleState = s.info.State
	s.info.State = Busy

	var w ChunkWriter
	if s.writer != nil {
		w = s.writer
	}
	return *s.profile, w, nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.connected && s.info.State == Busy {
		s.info.State = s.idleState
	}
}

// Print encodes the canvas for the connected printer and sends the whole
// job, one frame at a time. It fails with ErrNotConfigured if no device
// profile has been resolved and ErrBusy if another print is in progress.
func (s *Session) Print(pixels PixelBuffer) error {
	profile, w, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	report := PrintReport{
		JobID:   uuid.NewString(),
		Device:  s.Info().Name,
		Model:   profile.Model,
		Rows:    pixels.Height,
		Started: time.Now(),
	}

	bitmap := Encode(pixels, profile)
	frames := BuildPrintJob(bitmap, profile)
	report.Frames = len(frames)
	slog.Info("Sending print job", "job", report.JobID, "rows", bitmap.Height(), "frames", len(frames))

	for _, frame := range frames {
		if err = s.transport.Send(frame, w, profile.MTU); err != nil {
			break
		}
		report.Bytes += len(frame)
	}

	report.Duration = time.Since(report.Started)
	report.Err = err
	s.notify(report)

	if err != nil {
		return fmt.Errorf("Print job %s failed:\n%w", report.JobID, err)
	}
	slog.Info("Print job sent", "job", report.JobID, "bytes", report.Bytes, "duration", report.Duration)
	return nil
}

// RefreshStatus asks the printer to report its battery, paper and firmware
// status. The answers arrive asynchronously and show up in Info.
func (s *Session) RefreshStatus() error {
	s.mu.Lock()
	notifying := s.notifying
	s.mu.Unlock()
	if !notifying {
		if !s.Connected() {
			return ErrNotConfigured
		}
		return errors.New("Printer doesn't report its status")
	}

	profile, w, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	slog.Debug("Polling device status")
	for _, frame := range StatusQueryFrames() {
		if err := s.transport.Send(frame, w, profile.MTU); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handleNotification(d []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info.State == Disconnected {
		return
	}
	if s.info.State != Busy {
		applyNotification(d, &s.info)
		return
	}
	// paper changes during a job apply to the state restored afterwards
	s.info.State = s.idleState
	applyNotification(d, &s.info)
	s.idleState, s.info.State = s.info.State, Busy
}

func (s *Session) notify(r PrintReport) {
	s.mu.Lock()
	observers := append([]func(PrintReport){}, s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(r)
	}
}
