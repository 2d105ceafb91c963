package printer

import (
	"fmt"
	"log/slog"
	"time"
)

// Something a byte chunk can be written to, typically a BLE characteristic
type ChunkWriter interface {
	Write(chunk []byte) error
}

// The delay used after every chunk when nothing else is configured. Writing
// faster than a constrained link drains drops or corrupts data.
const DefaultChunkDelay = 20 * time.Millisecond

// Writes byte sequences in MTU sized chunks with a fixed pause after each one.
type Transport struct {
	Delay time.Duration
	// Replaceable so tests don't have to wait, defaults to time.Sleep
	Sleep func(time.Duration)
}

func NewTransport(delay time.Duration) *Transport {
	return &Transport{Delay: delay, Sleep: time.Sleep}
}

// Send splits data into chunks of at most mtu bytes and writes them one after
// the other, waiting t.Delay after each write. The first failing write aborts
// the send; nothing is retried.
func (t *Transport) Send(data []byte, w ChunkWriter, mtu int) error {
	if w == nil {
		return ErrNotConnected
	}
	if mtu <= 0 {
		return fmt.Errorf("Invalid MTU %d", mtu)
	}

	sleep := t.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for i, offset := 0, 0; offset < len(data); i, offset = i+1, offset+mtu {
		chunk := data[offset:min(offset+mtu, len(data))]
		if err := w.Write(chunk); err != nil {
			slog.Error("Couldn't write chunk", "chunk", i, "size", len(chunk), "error", err)
			return fmt.Errorf("%w (chunk %d of %d bytes):\n%w", ErrWriteFailed, i, len(chunk), err)
		}
		slog.Debug("Wrote chunk to device", "chunk", i, "size", len(chunk))
		if t.Delay > 0 {
			sleep(t.Delay)
		}
	}
	return nil
}

// Shorthand for NewTransport(delay).Send
func Send(data []byte, w ChunkWriter, mtu int, delay time.Duration) error {
	return NewTransport(delay).Send(data, w, mtu)
}
