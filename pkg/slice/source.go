package slice

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Source is the input to Generate: a decoded image or a flat colour.
type Source struct {
	img *image.NRGBA
}

// FromImage wraps an already decoded image.
func FromImage(img image.Image) Source {
	return Source{img: imaging.Clone(img)}
}

// FromColor makes a uniform 1×1 source.
func FromColor(c color.NRGBA) Source {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return Source{img: img}
}

// Decode decodes image bytes in any registered format.
func Decode(data []byte) (Source, error) {
	if len(data) == 0 {
		return Source{}, errors.New(errors.ErrCodeInvalidImage, "image data is empty")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Source{}, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode edge image")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return Source{}, errors.New(errors.ErrCodeInvalidImage, "%s image has zero size", format)
	}
	return FromImage(img), nil
}

// Parse builds a Source from either a hex colour string ("#rgb", "#rrggbb"
// or "#rrggbbaa") or image bytes.
func Parse(data []byte) (Source, error) {
	if s := strings.TrimSpace(string(data)); strings.HasPrefix(s, "#") && len(s) <= 9 {
		c, err := ParseColor(s)
		if err != nil {
			return Source{}, err
		}
		return FromColor(c), nil
	}
	return Decode(data)
}

// Image returns the source pixels.
func (s Source) Image() *image.NRGBA {
	return s.img
}

// Bounds returns the source size.
func (s Source) Bounds() image.Rectangle {
	if s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa". The leading '#' is optional.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, errors.New(errors.ErrCodeInvalidColor, "invalid colour %q", s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return color.NRGBA{}, errors.New(errors.ErrCodeInvalidColor, "invalid colour %q", s)
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

// averageColor returns the alpha-weighted mean colour of img, sampling at
// most about 64k pixels.
func averageColor(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	if b.Empty() {
		return color.NRGBA{}
	}
	step := 1
	for (b.Dx()/step)*(b.Dy()/step) > 1<<16 {
		step *= 2
	}

	var r, g, bl, a, n float64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := img.NRGBAAt(x, y)
			w := float64(c.A) / 255
			r += float64(c.R) * w
			g += float64(c.G) * w
			bl += float64(c.B) * w
			a += w
			n++
		}
	}
	if a == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: uint8(r/a + 0.5),
		G: uint8(g/a + 0.5),
		B: uint8(bl/a + 0.5),
		A: uint8(255*a/n + 0.5),
	}
}
