package scale

import (
	"image"
	"image/color"
	"math"
)

// SampleBilinear samples img at normalized coordinates (u, v), where (0,0)
// is the top-left corner and (1,1) the bottom-right, blending the four
// neighbouring pixels. Out-of-range coordinates clamp to the edge.
func SampleBilinear(img *image.NRGBA, u, v float64) color.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{}
	}

	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := clamp(x0+1, 0, w-1)
	y1 := clamp(y0+1, 0, h-1)
	x0 = clamp(x0, 0, w-1)
	y0 = clamp(y0, 0, h-1)

	p00 := pixel(img, x0, y0)
	p10 := pixel(img, x1, y0)
	p01 := pixel(img, x0, y1)
	p11 := pixel(img, x1, y1)

	var out [4]uint8
	for c := range 4 {
		top := float64(p00[c])*(1-tx) + float64(p10[c])*tx
		bottom := float64(p01[c])*(1-tx) + float64(p11[c])*tx
		out[c] = uint8(math.Round(top*(1-ty) + bottom*ty))
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

// pixel returns the raw NRGBA bytes at (x, y) relative to the image origin.
func pixel(img *image.NRGBA, x, y int) []uint8 {
	b := img.Bounds()
	i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
	return img.Pix[i : i+4 : i+4]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
