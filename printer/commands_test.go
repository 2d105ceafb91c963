package printer

import (
	"bytes"
	"fmt"
	"image/color"
	"testing"
)

func assertFrame(t *testing.T, name string, got []byte, expected ...byte) {
	t.Helper()
	if !bytes.Equal(got, expected) {
		t.Errorf("%s: expected % x, got % x", name, expected, got)
	}
}

func TestPrintBitmapHeader(t *testing.T) {
	assertFrame(t, "48x1", printBitmapHeader(48, 1), 0x1D, 0x76, 0x30, 0x00, 0x30, 0x00, 0x01, 0x00)
	assertFrame(t, "48x256", printBitmapHeader(48, 256), 0x1D, 0x76, 0x30, 0x00, 0x30, 0x00, 0x00, 0x01)
	assertFrame(t, "little endian", printBitmapHeader(0x0102, 0x0304), 0x1D, 0x76, 0x30, 0x00, 0x02, 0x01, 0x04, 0x03)
}

func TestBuildPrintJobBlackSquare(t *testing.T) {
	b := Encode(aUniformBuffer(8, 1, color.RGBA{A: 255}), PhomemoT02)
	frames := BuildPrintJob(b, PhomemoT02)

	if len(frames) != 5 {
		t.Fatalf("Expected 5 frames, got %d", len(frames))
	}
	assertFrame(t, "reset", frames[0], 0x1B, 0x40)
	assertFrame(t, "density", frames[1], 0x1F, 0x11, 0x02, 0x04)
	assertFrame(t, "justify", frames[2], 0x1B, 0x61, 0x01)

	raster := frames[3]
	if len(raster) != 8+48 {
		t.Fatalf("Expected a 56 byte raster block, got %d", len(raster))
	}
	assertFrame(t, "raster header", raster[:8], 0x1D, 0x76, 0x30, 0x00, 0x30, 0x00, 0x01, 0x00)
	if raster[8] != 0xFF {
		t.Errorf("Expected first data byte 0xFF, got %#02x", raster[8])
	}
	if !bytes.Equal(raster[9:], make([]byte, 47)) {
		t.Errorf("Expected the rest of the row to be blank, got % x", raster[9:])
	}

	assertFrame(t, "feed", frames[4], 0x1B, 0x64, 0x03)
}

func TestBuildPrintJobWithoutVendorCommands(t *testing.T) {
	b := Encode(aUniformBuffer(384, 2, color.RGBA{255, 255, 255, 255}), EscPosBLE)
	frames := BuildPrintJob(b, EscPosBLE)

	if len(frames) != 4 {
		t.Fatalf("Expected 4 frames, got %d", len(frames))
	}
	assertFrame(t, "reset", frames[0], 0x1B, 0x40)
	assertFrame(t, "justify", frames[1], 0x1B, 0x61, 0x01)
	assertFrame(t, "raster header", frames[2][:8], 0x1D, 0x76, 0x30, 0x00, 0x30, 0x00, 0x02, 0x00)
	assertFrame(t, "feed", frames[3], 0x1B, 0x64, 0x03)
}

func TestBuildPrintJobRasterBlocks(t *testing.T) {
	tests := []struct {
		rows, linesPerChunk int
		expectedHeights     []int
	}{
		{1, 24, []int{1}},
		{24, 24, []int{24}},
		{50, 24, []int{24, 24, 2}},
		{17, 8, []int{8, 8, 1}},
		{16, 8, []int{8, 8}},
		{300, 256, []int{256, 44}},
		{30, 0, []int{30}},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%d rows in %d line chunks", test.rows, test.linesPerChunk), func(t *testing.T) {
			profile := EscPosBLE
			profile.LinesPerChunk = test.linesPerChunk

			b := PackBitmapStride(&PixelBitmap{pixels: blankRows(test.rows, 384), width: 384, height: test.rows}, profile.BytesPerLine)
			frames := BuildPrintJob(b, profile)

			blocks := frames[2 : len(frames)-1]
			if len(blocks) != len(test.expectedHeights) {
				t.Fatalf("Expected %d raster blocks, got %d", len(test.expectedHeights), len(blocks))
			}
			total := 0
			for i, block := range blocks {
				height := int(block[6]) | int(block[7])<<8
				if height != test.expectedHeights[i] {
					t.Errorf("Block %d: expected height %d, got %d", i, test.expectedHeights[i], height)
				}
				if len(block) != 8+height*48 {
					t.Errorf("Block %d: expected %d bytes, got %d", i, 8+height*48, len(block))
				}
				total += height
			}
			if total != test.rows {
				t.Errorf("Blocks cover %d rows, expected %d", total, test.rows)
			}
		})
	}
}

func TestBuildPrintJobEmptyBitmap(t *testing.T) {
	frames := BuildPrintJob(Encode(PixelBuffer{}, EscPosBLE), EscPosBLE)
	if len(frames) != 3 {
		t.Fatalf("Expected reset, justify and feed only, got %d frames", len(frames))
	}
	assertFrame(t, "feed", frames[2], 0x1B, 0x64, 0x03)
}

func TestBuildPrintJobRowOrder(t *testing.T) {
	rows := blankRows(3, 384)
	rows[1][0] = 1
	profile := EscPosBLE
	profile.LinesPerChunk = 2

	b := PackBitmapStride(&PixelBitmap{pixels: rows, width: 384, height: 3}, 48)
	frames := BuildPrintJob(b, profile)

	first := frames[2]
	if first[8] != 0 || first[8+48] != 0x80 {
		t.Errorf("Expected the second row to carry the dot, got % x / % x", first[8], first[8+48])
	}
	if frames[3][8] != 0 {
		t.Errorf("Expected the last block to be blank")
	}
}

func TestStatusQueryFrames(t *testing.T) {
	frames := StatusQueryFrames()
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(frames))
	}
	assertFrame(t, "battery", frames[0], 0x1F, 0x11, 0x08)
	assertFrame(t, "paper", frames[1], 0x1F, 0x11, 0x11)
	assertFrame(t, "firmware", frames[2], 0x1F, 0x11, 0x07)
}

func blankRows(height, width int) [][]byte {
	rows := make([][]byte, height)
	for y := range rows {
		rows[y] = make([]byte, width)
	}
	return rows
}
