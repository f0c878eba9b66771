package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// placeholderJPEG renders the offline frame served while no live frame is
// fresh: a dark field with a lighter center band where the display overlays
// its own offline message.
func placeholderJPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0x16, G: 0x1a, B: 0x1f, A: 0xff}}, image.Point{}, draw.Src)

	band := image.Rect(0, height/2-height/12, width, height/2+height/12)
	draw.Draw(img, band, &image.Uniform{C: color.RGBA{R: 0x2b, G: 0x31, B: 0x3a, A: 0xff}}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70}); err != nil {
		return nil
	}
	return buf.Bytes()
}
