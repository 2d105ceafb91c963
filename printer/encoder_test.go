package printer

import (
	"fmt"
	"image"
	"image/color"
	"testing"
)

func aUniformBuffer(width, height int, c color.RGBA) PixelBuffer {
	data := make([]byte, width*height*4)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = c.R, c.G, c.B, c.A
	}
	return PixelBuffer{Width: width, Height: height, Data: data}
}

func assertAllBytes(t *testing.T, b *PackedBitmap, bytesPerRow int, expected func(col int) byte) {
	t.Helper()
	for y := range b.Height() {
		row := b.Row(y)
		if len(row) != bytesPerRow {
			t.Fatalf("Row %d has %d bytes, expected %d", y, len(row), bytesPerRow)
		}
		for x, got := range row {
			if want := expected(x); got != want {
				t.Fatalf("Byte (%d, %d): expected %#02x, got %#02x", x, y, want, got)
			}
		}
	}
}

func TestEncodeUniformLuminance(t *testing.T) {
	light := []color.RGBA{
		{255, 255, 255, 255},
		{129, 129, 129, 255},
		{200, 100, 255, 0}, // alpha is ignored
	}
	dark := []color.RGBA{
		{0, 0, 0, 255},
		{127, 127, 127, 255},
		{0, 0, 0, 0},
		{255, 0, 0, 255}, // Y = 76.2
	}

	for _, width := range []int{384, 200, 13, 500} {
		for _, c := range light {
			t.Run(fmt.Sprintf("light %v width %d", c, width), func(t *testing.T) {
				b := Encode(aUniformBuffer(width, 5, c), PhomemoT02)
				assertAllBytes(t, b, 48, func(int) byte { return 0 })
			})
		}
		for _, c := range dark {
			t.Run(fmt.Sprintf("dark %v width %d", c, width), func(t *testing.T) {
				b := Encode(aUniformBuffer(width, 5, c), PhomemoT02)
				assertAllBytes(t, b, 48, func(col int) byte {
					switch {
					case (col+1)*8 <= width:
						return 0xFF
					case col*8 >= width:
						return 0x00
					default:
						return byte(0xFF << (8 - width%8))
					}
				})
			})
		}
	}
}

func TestEncodeDimensions(t *testing.T) {
	for _, size := range []struct{ width, height int }{{1, 1}, {8, 3}, {384, 10}, {1000, 2}, {13, 7}} {
		t.Run(fmt.Sprintf("%dx%d", size.width, size.height), func(t *testing.T) {
			b := Encode(aUniformBuffer(size.width, size.height, color.RGBA{A: 255}), PhomemoT02)
			if b.Height() != size.height {
				t.Errorf("Expected %d rows, got %d", size.height, b.Height())
			}
			if b.Stride() != PhomemoT02.BytesPerLine {
				t.Errorf("Expected %d bytes per row, got %d", PhomemoT02.BytesPerLine, b.Stride())
			}
			if len(b.Data()) != size.height*PhomemoT02.BytesPerLine {
				t.Errorf("Expected %d bytes, got %d", size.height*PhomemoT02.BytesPerLine, len(b.Data()))
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	b := Encode(PixelBuffer{Width: 384}, PhomemoT02)
	if b.Height() != 0 || len(b.Data()) != 0 {
		t.Errorf("Expected an empty bitmap, got %s with %d bytes", b, len(b.Data()))
	}
}

func TestEncodeBlackSquare(t *testing.T) {
	b := Encode(aUniformBuffer(8, 1, color.RGBA{A: 255}), PhomemoT02)
	row := b.Row(0)
	if row[0] != 0xFF {
		t.Errorf("Expected first byte 0xFF, got %#02x", row[0])
	}
	for i, v := range row[1:] {
		if v != 0 {
			t.Errorf("Expected byte %d to be blank, got %#02x", i+1, v)
		}
	}
}

func TestEncodeMostSignificantBitIsLeftmost(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 1))
	for x := range 16 {
		img.Set(x, 0, color.White)
	}
	img.Set(0, 0, color.Black)
	img.Set(9, 0, color.Black)

	b := Encode(PixelsFromImage(img), PhomemoT02)
	if b.Row(0)[0] != 0x80 || b.Row(0)[1] != 0x40 {
		t.Errorf("Unexpected bytes %08b %08b", b.Row(0)[0], b.Row(0)[1])
	}
	if b.GetBit(0, 0) != 1 || b.GetBit(9, 0) != 1 || b.GetBit(1, 0) != 0 {
		t.Errorf("GetBit doesn't agree with the encoded bytes")
	}
}

func TestNewPixelBuffer(t *testing.T) {
	if _, err := NewPixelBuffer(2, 2, make([]byte, 16)); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := NewPixelBuffer(2, 2, make([]byte, 15)); err == nil {
		t.Errorf("Expected an error for inconsistent data length")
	}
	if _, err := NewPixelBuffer(-1, 2, nil); err == nil {
		t.Errorf("Expected an error for negative width")
	}
}

func TestNewPixelBufferTooLarge(t *testing.T) {
	tests := map[string]struct{ width, height int }{
		"width overflows":       {1 << 62, 1},
		"product overflows":     {1 << 31, 1 << 31},
		"too tall":              {0, MaxCanvasHeight + 1},
		"too tall and very far": {1, 1 << 31},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewPixelBuffer(test.width, test.height, nil); err == nil {
				t.Errorf("Expected %dx%d to be rejected", test.width, test.height)
			}
		})
	}

	if _, err := NewPixelBuffer(1, MaxCanvasHeight, make([]byte, MaxCanvasHeight*4)); err != nil {
		t.Errorf("Expected the tallest canvas to be accepted, got %v", err)
	}
}

func TestPixelsFromImageOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 14, 12))
	img.Set(10, 10, color.RGBA{1, 2, 3, 255})

	p := PixelsFromImage(img.SubImage(image.Rect(10, 10, 12, 12)))
	if p.Width != 2 || p.Height != 2 || len(p.Data) != 16 {
		t.Fatalf("Unexpected buffer %s with %d bytes", p, len(p.Data))
	}
	if r, g, b := p.RGB(0, 0); r != 1 || g != 2 || b != 3 {
		t.Errorf("Expected (1,2,3) at origin, got (%d,%d,%d)", r, g, b)
	}
}
