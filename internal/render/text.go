package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const DefaultFontSize = 32

// Horizontal margin left either side of the text, in pixels
const textMargin = 4

func loadFace(size float64) (font.Face, error) {
	parsedFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse font:\n%w", err)
	}

	fontFace, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("Couldn't create font face:\n%w", err)
	}
	return fontFace, nil
}

// Greedily breaks text into lines no wider than maxWidth. Explicit newlines
// always start a new line and single words wider than maxWidth get a line
// of their own.
func wrapText(text string, maxWidth int, face font.Face) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		var line string
		for _, word := range words {
			testLine := line
			if len(line) > 0 {
				testLine += " "
			}
			testLine += word

			width := font.MeasureString(face, testLine).Ceil()
			if width > maxWidth && len(line) > 0 && maxWidth > 0 {
				lines = append(lines, line)
				line = word
			} else {
				line = testLine
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// Text renders black text on a white background, wrapped to fit width pixels.
// The image is as tall as the text needs.
func Text(text string, size float64, width int) (*image.RGBA, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("No text to render")
	}
	if size <= 0 {
		size = DefaultFontSize
	}

	face, err := loadFace(size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := wrapText(text, width-2*textMargin, face)
	lineHeight := face.Metrics().Height.Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width, lineHeight*len(lines)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(textMargin),
			Y: fixed.I(i*lineHeight) + face.Metrics().Ascent,
		}
		d.DrawString(line)
	}
	return img, nil
}
