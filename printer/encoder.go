package printer

// Encode converts an RGBA canvas into the packed 1-bit format for the given
// device. Every row is profile.BytesPerLine bytes wide whatever the canvas
// width: dark pixels (luminance below 128) become ink, pixels past the canvas
// edge are blank and pixels past the device width are dropped.
func Encode(pixels PixelBuffer, profile DeviceProfile) *PackedBitmap {
	pb := PackBitmapStride(thresholdBitmap{pixels}, profile.BytesPerLine)
	pb.width = profile.DotsPerLine()
	return pb
}
