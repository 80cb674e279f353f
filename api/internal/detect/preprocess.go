package detect

import (
	"image"

	"github.com/nfnt/resize"
)

// Preprocess stretches img to size x size and returns it as planar RGB
// (CHW) in [0,1].
func Preprocess(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	b := resized.Bounds()
	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*size + x
			data[i] = float32(r) / 65535.0
			data[plane+i] = float32(g) / 65535.0
			data[2*plane+i] = float32(bl) / 65535.0
		}
	}
	return data
}
