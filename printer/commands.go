// This file implements the ESC/POS command byte sequences written to the
// printer, and the framing of a whole print job out of them.
package printer

import (
	"encoding/binary"
	"slices"
)

// Control characters
const (
	Esc = 0x1B
	GS  = 0x1D
	US  = 0x1F
)

// Type alias for the image alignment of a printed bitmap
type Justify byte

const Centre Justify = 0x01

// Type alias for the heating density of the print head (Phomemo vendor command)
type Density byte

const DensityHigh Density = 0x04

// Number of blank lines fed after the last raster block
const trailingFeedLines = 3

// Resets the printer & prepares it to accept commands
func initPrinter() []byte {
	return []byte{Esc, 0x40}
}

// Sets the image alignment/justification of the bitmap to print.
// Note: only centre alignment seems to work on T02 printers
func setJustify(justify Justify) []byte {
	return []byte{Esc, 0x61, byte(justify)}
}

func setPrintDensity(density Density) []byte {
	return []byte{US, 0x11, 0x02, byte(density)}
}

// Prepares the printer to print bitmap data specified by the width and height passed in.
// widthBytes specifies the width of the bitmap data in bytes, with 8 pixels packed into 1 byte.
// heightRows specifies the height of the bitmap data in rows.
// After this command is written, (widthBytes * heightRows) bytes of data must then be written
func printBitmapHeader(widthBytes uint16, heightRows uint16) []byte {
	h := []byte{GS, 0x76, 0x30, 0x00, 0, 0, 0, 0}
	binary.LittleEndian.PutUint16(h[4:6], widthBytes)
	binary.LittleEndian.PutUint16(h[6:8], heightRows)
	return h
}

// Makes the printer spool through a number of blank lines.
func feedLines(n byte) []byte {
	return []byte{Esc, 0x64, n}
}

func queryBatteryStatus() []byte {
	return []byte{US, 0x11, 0x08}
}

// Queries the status of the paper loaded & whether the top lid is open or not.
func queryPaperStatus() []byte {
	return []byte{US, 0x11, 0x11}
}

func queryFirmwareVersion() []byte {
	return []byte{US, 0x11, 0x07}
}

// BuildPrintJob returns the frames printing b on a device described by
// profile, in the order they must be sent: reset, the profile's vendor
// initialisation, centre justification, one raster block per group of
// profile.LinesPerChunk rows and a final paper feed.
//
// Raster blocks are bounded because print heads only buffer a limited number
// of lines, which also lets the printer start before the whole image arrives.
func BuildPrintJob(b *PackedBitmap, profile DeviceProfile) [][]byte {
	frames := [][]byte{initPrinter()}
	for _, c := range profile.InitCommands {
		frames = append(frames, slices.Clone(c))
	}
	frames = append(frames, setJustify(Centre))
	frames = append(frames, rasterBlocks(b, profile.LinesPerChunk)...)
	frames = append(frames, feedLines(trailingFeedLines))
	return frames
}

// Splits the bitmap up vertically into blocks of at most linesPerChunk rows,
// each one a header immediately followed by its row data
func rasterBlocks(b *PackedBitmap, linesPerChunk int) [][]byte {
	if linesPerChunk <= 0 {
		linesPerChunk = b.Height()
	}
	strideU16 := uint16(b.Stride())

	var blocks [][]byte
	for start := 0; start < b.Height(); start += linesPerChunk {
		end := min(start+linesPerChunk, b.Height())

		slice := b.Chunk(start, end-start)
		block := make([]byte, 0, 8+len(slice.Data()))
		block = append(block, printBitmapHeader(strideU16, uint16(slice.Height()))...)
		block = append(block, slice.Data()...)
		blocks = append(blocks, block)
	}
	return blocks
}

// Frames asking the printer to report battery, paper and firmware through
// its notification characteristic.
func StatusQueryFrames() [][]byte {
	return [][]byte{
		queryBatteryStatus(),
		queryPaperStatus(),
		queryFirmwareVersion(),
	}
}
