package slice

import (
	"image"
	"image/color"
)

// Mask returns a copy of img with mitred ends cut to transparency. img must
// be in on-page orientation for a right-hand page.
//
// In a corner where two strips meet, each pixel belongs to the strip whose
// outer edge is nearer. Side strips keep ties.
func Mask(img *image.NRGBA, pos Position, c Corners) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)

	b := out.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	for y := range b.Dy() {
		py := float64(y) + 0.5
		for x := range b.Dx() {
			px := float64(x) + 0.5
			if cut(pos, c, px, py, w, h) {
				out.SetNRGBA(b.Min.X+x, b.Min.Y+y, color.NRGBA{})
			}
		}
	}
	return out
}

// cut reports whether the pixel center (px, py) falls on the far side of a
// mitre. dSide is the distance to the page's outer side edge.
func cut(pos Position, c Corners, px, py, w, h float64) bool {
	dSide := w - px
	switch pos {
	case Side:
		// Outer edges: right (side), top, bottom.
		if c.Top && dSide > py {
			return true
		}
		if c.Bottom && dSide > h-py {
			return true
		}
	case Top:
		if c.Side && dSide <= py {
			return true
		}
	case Bottom:
		if c.Side && dSide <= h-py {
			return true
		}
	}
	return false
}
