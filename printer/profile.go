package printer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Every print head currently supported is 384 dots wide.
const DeviceDots = 384

const UnknownModel = "unknown"

// DeviceProfile describes a single printer model. Profiles are values built
// once by the registry and never changed afterwards.
type DeviceProfile struct {
	Model         string
	Name          string
	BytesPerLine  int
	ServiceUUID   string
	WriteUUID     string
	NotifyUUID    string
	MTU           int
	LinesPerChunk int
	// Vendor frames sent after the reset command, nil when the model needs none
	InitCommands [][]byte
}

func (p DeviceProfile) DotsPerLine() int {
	return p.BytesPerLine * bitsPerWord
}

func (p DeviceProfile) String() string {
	return fmt.Sprintf("DeviceProfile(%s)", p.Model)
}

func bleUUID(short uint16) string {
	return fmt.Sprintf("0000%04x-0000-1000-8000-00805f9b34fb", short)
}

var (
	// Phomemo T02/M02 family, the write characteristic is 0xFF02 on service 0xFF00
	PhomemoT02 = DeviceProfile{
		Model:         "phomemo-t02",
		Name:          "Phomemo T02",
		BytesPerLine:  48,
		ServiceUUID:   bleUUID(0xff00),
		WriteUUID:     bleUUID(0xff02),
		NotifyUUID:    bleUUID(0xff03),
		MTU:           150,
		LinesPerChunk: 256,
		InitCommands: [][]byte{
			setPrintDensity(DensityHigh),
		},
	}

	// Generic ESC/POS label printers exposing the 0x18F0 printing service
	EscPosBLE = DeviceProfile{
		Model:         "escpos-ble",
		Name:          "ESC/POS BLE printer",
		BytesPerLine:  48,
		ServiceUUID:   bleUUID(0x18f0),
		WriteUUID:     bleUUID(0x2af1),
		MTU:           150,
		LinesPerChunk: 24,
	}

	Unknown = DeviceProfile{
		Model:         UnknownModel,
		Name:          "Unknown printer",
		BytesPerLine:  48,
		MTU:           20,
		LinesPerChunk: 24,
	}
)

// The ordered, read-only set of known device profiles.
type Registry struct {
	profiles []DeviceProfile
	unknown  DeviceProfile
}

func DefaultRegistry() *Registry {
	r, err := NewRegistry(PhomemoT02, EscPosBLE)
	if err != nil {
		panic(err) // built-in profiles are always valid
	}
	return r
}

// Builds a registry from profiles in matching order. Profiles are copied so
// that callers can't mutate them afterwards.
func NewRegistry(profiles ...DeviceProfile) (*Registry, error) {
	r := &Registry{unknown: Unknown}
	seen := map[string]bool{UnknownModel: true}

	for _, p := range profiles {
		if seen[p.Model] {
			return nil, fmt.Errorf("Duplicate device profile %q", p.Model)
		}
		seen[p.Model] = true

		p, err := normaliseProfile(p)
		if err != nil {
			return nil, fmt.Errorf("Invalid device profile %q:\n%w", p.Model, err)
		}
		r.profiles = append(r.profiles, p)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func normaliseProfile(p DeviceProfile) (DeviceProfile, error) {
	var err error
	if p.Model == "" {
		return p, errors.New("model is required")
	}
	if p.WriteUUID == "" {
		return p, errors.New("write characteristic UUID is required")
	}
	if p.ServiceUUID, err = normaliseUUID(p.ServiceUUID); err != nil {
		return p, fmt.Errorf("service UUID:\n%w", err)
	}
	if p.WriteUUID, err = normaliseUUID(p.WriteUUID); err != nil {
		return p, fmt.Errorf("write UUID:\n%w", err)
	}
	if p.NotifyUUID, err = normaliseUUID(p.NotifyUUID); err != nil {
		return p, fmt.Errorf("notify UUID:\n%w", err)
	}
	return p.clone(), nil
}

// Copies the profile along with its vendor frames, which are the only
// shared state in an otherwise plain value.
func (p DeviceProfile) clone() DeviceProfile {
	if p.InitCommands != nil {
		commands := make([][]byte, len(p.InitCommands))
		for i, c := range p.InitCommands {
			commands[i] = slices.Clone(c)
		}
		p.InitCommands = commands
	}
	return p
}

// Lower-cases and validates a UUID string, empty strings are left alone
func normaliseUUID(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func sameUUID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na, errA := normaliseUUID(a)
	nb, errB := normaliseUUID(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return na == nb
}

// Checks the structural invariants of every profile including the fallback.
func (r *Registry) Validate() error {
	for _, p := range append(slices.Clone(r.profiles), r.unknown) {
		if p.BytesPerLine <= 0 || p.DotsPerLine() != DeviceDots {
			return fmt.Errorf("Profile %q has %d bytes per line, expecting %d", p.Model, p.BytesPerLine, DeviceDots/bitsPerWord)
		}
		if p.BytesPerLine > 0xFFFF {
			return fmt.Errorf("Profile %q line width doesn't fit in a raster header", p.Model)
		}
		if p.MTU <= 0 {
			return fmt.Errorf("Profile %q has invalid MTU %d", p.Model, p.MTU)
		}
		if p.LinesPerChunk <= 0 || p.LinesPerChunk > 0xFFFF {
			return fmt.Errorf("Profile %q has invalid lines per chunk %d", p.Model, p.LinesPerChunk)
		}
	}
	return nil
}

// Returns the profile for the model, or the unknown fallback.
func (r *Registry) Lookup(model string) DeviceProfile {
	for _, p := range r.profiles {
		if p.Model == model {
			return p.clone()
		}
	}
	return r.unknown.clone()
}

func (r *Registry) Profiles() []DeviceProfile {
	profiles := make([]DeviceProfile, len(r.profiles))
	for i, p := range r.profiles {
		profiles[i] = p.clone()
	}
	return profiles
}
