package printer

import (
	"fmt"
	"image"
	"image/draw"
	"math"
)

// Tallest canvas accepted, a little over 8 metres of paper at 203 dpi
const MaxCanvasHeight = 1 << 16

// PixelBuffer is a row-major RGBA view of a canvas, 4 bytes per pixel.
type PixelBuffer struct {
	Width, Height int
	Data          []byte
}

func NewPixelBuffer(width, height int, data []byte) (PixelBuffer, error) {
	if width < 0 || height < 0 {
		return PixelBuffer{}, fmt.Errorf("Pixel buffer dimensions can't be negative (got %vx%v)", width, height)
	}
	if height > MaxCanvasHeight {
		return PixelBuffer{}, fmt.Errorf("Pixel buffer is too tall (got %v rows, at most %v)", height, MaxCanvasHeight)
	}
	if width > 0 && height > math.MaxInt/4/width {
		return PixelBuffer{}, fmt.Errorf("Pixel buffer dimensions are too large (got %vx%v)", width, height)
	}
	if len(data) != width*height*4 {
		return PixelBuffer{}, fmt.Errorf("Pixel data not consistent with provided width and height (got %v, expecting %v*%v*4=%v)",
			len(data),
			width,
			height,
			width*height*4,
		)
	}
	return PixelBuffer{Width: width, Height: height, Data: data}, nil
}

// Copies any image into a pixel buffer whose origin is the top left of the
// image bounds.
func PixelsFromImage(i image.Image) PixelBuffer {
	bounds := i.Bounds()
	rgba, ok := i.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), i, bounds.Min, draw.Src)
	}
	return PixelBuffer{Width: bounds.Dx(), Height: bounds.Dy(), Data: rgba.Pix}
}

func (p PixelBuffer) RGB(x, y int) (r, g, b byte) {
	i := (y*p.Width + x) * 4
	return p.Data[i], p.Data[i+1], p.Data[i+2]
}

func (p PixelBuffer) String() string {
	return fmt.Sprintf("PixelBuffer(%d,%d)", p.Width, p.Height)
}
