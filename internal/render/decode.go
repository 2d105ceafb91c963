package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrImageTooLarge = errors.New("image is too large")

// Largest decoded image accepted, in pixels. Decoders allocate the whole
// image from the header alone, so this is checked before decoding.
const MaxImagePixels = 4096 * 4096

// Decode reads an image in any registered format after checking that its
// declared dimensions are within MaxImagePixels.
func Decode(r io.Reader) (image.Image, string, error) {
	var header bytes.Buffer
	config, format, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", err
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, format, fmt.Errorf("%s image has no pixels", format)
	}
	if int64(config.Width)*int64(config.Height) > MaxImagePixels {
		return nil, format, fmt.Errorf("%w (%s image is %dx%d)", ErrImageTooLarge, format, config.Width, config.Height)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, format, err
	}
	return img, format, nil
}
