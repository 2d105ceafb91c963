package printer

import (
	"fmt"

	"tomgalvin.uk/sketchprint/model"
)

type Bitmap interface {
	Width() int
	Height() int
	GetBit(x int, y int) byte
}

// One byte per pixel, 1 meaning ink. Mostly useful as a reference when
// testing the packed format.
type PixelBitmap struct {
	pixels        [][]byte
	width, height int
}

func (b *PixelBitmap) Width() int {
	return b.width
}

func (b *PixelBitmap) Height() int {
	return b.height
}

func (b *PixelBitmap) GetBit(x int, y int) byte {
	return b.pixels[y][x]
}

func (b *PixelBitmap) String() string {
	return fmt.Sprintf("PixelBitmap(%d,%d)", b.width, b.height)
}

func BitmapFromRequest(r *model.PrintingRequest) (PixelBuffer, error) {
	return NewPixelBuffer(r.Width, r.Height, r.Data)
}

// Luminance cut-off separating ink from paper.
const luminanceThreshold = 128

// thresholdBitmap reads a pixel buffer as ink/no ink. Alpha is ignored.
type thresholdBitmap struct {
	pixels PixelBuffer
}

func (b thresholdBitmap) Width() int {
	return b.pixels.Width
}

func (b thresholdBitmap) Height() int {
	return b.pixels.Height
}

func (b thresholdBitmap) GetBit(x int, y int) byte {
	r, g, bl := b.pixels.RGB(x, y)
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
	if luminance < luminanceThreshold {
		return 1
	}
	return 0
}
