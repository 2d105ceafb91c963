package printer

import (
	"bytes"
	"fmt"
	"log/slog"
)

type State byte

const (
	Disconnected State = iota
	Connecting
	Ready
	Busy
	OutOfPaper
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Busy:
		return "busy"
	case OutOfPaper:
		return "out of paper"
	default:
		return "disconnected"
	}
}

// What we know about the connected printer. Telemetry fields are only filled
// in when the printer reports them through its notify characteristic.
type DeviceInfo struct {
	State           State
	Name            string
	Model           string
	FirmwareVersion string
	// -1 until the printer reports it
	BatteryLevel int
	PaperLoaded  bool
}

func hasPrefix(d []byte, p ...byte) bool {
	return len(d) >= len(p) && bytes.Equal(d[:len(p)], p)
}

// Updates info from a notification sent by the printer. Returns false for
// notifications that aren't understood, which are only logged.
func applyNotification(d []byte, info *DeviceInfo) bool {
	switch {
	case hasPrefix(d, 0x1a, 0x3b, 0x04):
		// only seen this with later firmware version
		slog.Debug("Printer info", "info", fmt.Sprintf("%x", d[3:]))
	case hasPrefix(d, 0x1a, 0x04) && len(d) >= 3:
		info.BatteryLevel = int(d[2])
	case hasPrefix(d, 0x1a, 0x07) && len(d) >= 5:
		info.FirmwareVersion = fmt.Sprintf("%v.%v.%v", d[2], d[3], d[4])
	case hasPrefix(d, 0x1a, 0x06) && len(d) >= 3 && (d[2] == 0x88 || d[2] == 0x89):
		info.PaperLoaded = d[2]&1 == 1
		if !info.PaperLoaded {
			info.State = OutOfPaper
		} else if info.State == OutOfPaper {
			info.State = Ready
		}
	case hasPrefix(d, 0x1a, 0x0f, 0x0c):
		slog.Debug("Printer finished printing")
	case hasPrefix(d, 0x01, 0x01):
		slog.Debug("Read command successfully")
	default:
		slog.Info("Received unknown notification", "data", fmt.Sprintf("%x", d))
		return false
	}
	return true
}
