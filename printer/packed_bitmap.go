// This file implements methods to pack bitmap pixel data into
// the bit structure accepted by thermal print heads

package printer

import "fmt"

// a bitmap packed in memory, 8 pixels per byte with the most significant bit
// being the leftmost pixel. Every row is exactly stride bytes long.
type PackedBitmap struct {
	data                  []byte
	width, height, stride int
}

const bitsPerWord = 8

func (b *PackedBitmap) Width() int {
	return b.width
}

func (b *PackedBitmap) Height() int {
	return b.height
}

func (b *PackedBitmap) Stride() int {
	return b.stride
}

func (b *PackedBitmap) Data() []byte {
	return b.data
}

// Returns the packed bytes of row y
func (b *PackedBitmap) Row(y int) []byte {
	return b.data[y*b.stride : (y+1)*b.stride]
}

// Gets a single bit from the bitmap at the (x, y) coordinate, returns either 0 or 1
func (b *PackedBitmap) GetBit(x int, y int) byte {
	index := (y * b.stride) + (x / bitsPerWord)
	return (b.data[index] >> (bitsPerWord - 1 - x%bitsPerWord)) & 1
}

func (b *PackedBitmap) String() string {
	return fmt.Sprintf("PackedBitmap(%d,%d)", b.width, b.height)
}

// Takes a horizontal slice of the packed bitmap, starting at row start and
// containing height rows
func (b *PackedBitmap) Chunk(start int, height int) *PackedBitmap {
	return &PackedBitmap{
		data:   b.data[b.stride*start : b.stride*(start+height)],
		width:  b.width,
		height: height,
		stride: b.stride,
	}
}

// Packs any bitmap using the narrowest stride that fits its width.
func PackBitmap(b Bitmap) *PackedBitmap {
	return PackBitmapStride(b, (b.Width()+bitsPerWord-1)/bitsPerWord)
}

// Packs any bitmap into rows of exactly stride bytes. Pixels past the right
// edge of the source are left blank and source pixels that don't fit in the
// stride are dropped.
func PackBitmapStride(b Bitmap, stride int) *PackedBitmap {
	height := b.Height()
	width := b.Width()
	if width > stride*bitsPerWord {
		width = stride * bitsPerWord
	}
	data := make([]byte, stride*height)

	for y := range height {
		row := data[y*stride : (y+1)*stride]
		for x := range width {
			if b.GetBit(x, y)&1 == 1 {
				row[x/bitsPerWord] |= 0x80 >> (x % bitsPerWord)
			}
		}
	}

	return &PackedBitmap{data, width, height, stride}
}
