// Package render turns arbitrary images into something a thermal print head
// reproduces well: scaled to the device width, lightened and dithered down to
// pure black and white.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"
)

// Gamma applied before dithering, otherwise images appear too dark on T02
// printers. No logic used to pick 0.5, it just looks empirically close to the
// image on a display.
const Gamma = 0.5

// ForDevice scales i down to at most maxWidth pixels wide and dithers it to a
// two colour black and white image. Transparent areas come out white.
func ForDevice(i image.Image, maxWidth int) *image.Paletted {
	srcBounds := i.Bounds()
	newWidth := srcBounds.Dx()
	if newWidth > maxWidth {
		newWidth = maxWidth
	}
	newHeight := srcBounds.Dy()
	if newWidth < srcBounds.Dx() {
		// never scale a row away completely
		newHeight = max(1, srcBounds.Dy()*newWidth/srcBounds.Dx())
	}
	scaledBounds := image.Rect(0, 0, newWidth, newHeight)

	// resize image using Catmull Rom scaling, onto a white background
	scaledImage := image.NewRGBA(scaledBounds)
	draw.Draw(scaledImage, scaledBounds, image.White, image.Point{}, draw.Src)
	if newWidth == srcBounds.Dx() {
		draw.Draw(scaledImage, scaledBounds, i, srcBounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(scaledImage, scaledBounds, i, srcBounds, draw.Over, nil)
	}

	// turn full colour image into monochrome pixel by pixel
	monochromeImage := image.NewGray16(scaledBounds)
	for y := scaledBounds.Min.Y; y < scaledBounds.Max.Y; y++ {
		for x := scaledBounds.Min.X; x < scaledBounds.Max.X; x++ {
			grayColor := color.Gray16Model.Convert(scaledImage.At(x, y)).(color.Gray16)
			grayValue := float64(grayColor.Y) / float64(0xFFFF)
			scaledGrayValue := math.Pow(grayValue, Gamma)
			monochromeImage.Set(x, y, color.Gray16{Y: uint16(scaledGrayValue * float64(0xFFFF))})
		}
	}

	// dither monochrome image to black and white
	palette := []color.Color{color.Black, color.White}
	ditherer := dither.NewDitherer(palette)
	ditherer.Matrix = dither.FloydSteinberg
	ditherer.Serpentine = true
	return ditherer.DitherPaletted(monochromeImage)
}
