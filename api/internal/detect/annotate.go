package detect

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
}

func classColor(class int) color.RGBA {
	if class < 0 {
		class = -class
	}
	return palette[class%len(palette)]
}

// Annotate draws every detection with its label and score on a copy of img.
func Annotate(img image.Image, dets []Detection) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(2)
	for _, d := range dets {
		c := classColor(d.Class)
		b := d.Box
		dc.SetColor(c)
		dc.DrawRectangle(float64(b.X1), float64(b.Y1), float64(b.X2-b.X1), float64(b.Y2-b.Y1))
		dc.Stroke()

		text := fmt.Sprintf("%s %.2f", d.Label, d.Score)
		tw, th := dc.MeasureString(text)
		y := float64(b.Y1) - th - 4
		if y < 0 {
			y = float64(b.Y1)
		}
		dc.DrawRectangle(float64(b.X1), y, tw+4, th+4)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawStringAnchored(text, float64(b.X1)+2, y+2, 0, 1)
	}
	return dc.Image()
}

// Save writes img as a JPEG named name inside dir, creating dir if needed.
func Save(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create save dir")
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create output")
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "encode %s", path)
	}
	return path, errors.Wrap(f.Close(), "close output")
}
