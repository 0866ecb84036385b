package mockup

import (
	"image"
	"math"
)

// Point is a position in destination pixel space.
type Point struct {
	X, Y float64
}

func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Quad is a four-corner destination region.
type Quad struct {
	TL, TR, BL, BR Point
}

// Fallback region of a template without a marker, as fractions of its size.
const (
	fallbackLeft   = 0.30
	fallbackRight  = 0.62
	fallbackTop    = 0.12
	fallbackBottom = 0.86
)

// IsMarker reports whether a colour is the cover marker (pure red).
func IsMarker(r, g, b uint8) bool {
	return r > 200 && g < 50 && b < 50
}

// FindMarker returns the bounding box of marker pixels in img as a quad.
// ok is false when img has no marker pixels.
func FindMarker(img *image.NRGBA) (q Quad, ok bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			i := (x - b.Min.X) * 4
			if !IsMarker(row[i], row[i+1], row[i+2]) || row[i+3] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX {
		return Quad{}, false
	}
	return rectQuad(float64(minX), float64(minY), float64(maxX+1), float64(maxY+1)), true
}

// FallbackQuad returns the fixed proportional cover region of bounds.
func FallbackQuad(bounds image.Rectangle) Quad {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x0, y0 := float64(bounds.Min.X), float64(bounds.Min.Y)
	return rectQuad(x0+w*fallbackLeft, y0+h*fallbackTop, x0+w*fallbackRight, y0+h*fallbackBottom)
}

func rectQuad(x0, y0, x1, y1 float64) Quad {
	return Quad{
		TL: Point{x0, y0},
		TR: Point{x1, y0},
		BL: Point{x0, y1},
		BR: Point{x1, y1},
	}
}

// LeftHeight is the length of the quad's left side.
func (q Quad) LeftHeight() float64 { return q.BL.Y - q.TL.Y }

// RightHeight is the length of the quad's right side.
func (q Quad) RightHeight() float64 { return q.BR.Y - q.TR.Y }

// Size is the mean width and height of the quad.
func (q Quad) Size() (w, h float64) {
	w = ((q.TR.X - q.TL.X) + (q.BR.X - q.BL.X)) / 2
	h = (q.LeftHeight() + q.RightHeight()) / 2
	return w, h
}

// Bounds is the integer pixel rectangle enclosing the quad.
func (q Quad) Bounds() image.Rectangle {
	xs := []float64{q.TL.X, q.TR.X, q.BL.X, q.BR.X}
	ys := []float64{q.TL.Y, q.TR.Y, q.BL.Y, q.BR.Y}
	return image.Rect(
		int(math.Floor(minOf(xs))), int(math.Floor(minOf(ys))),
		int(math.Ceil(maxOf(xs))), int(math.Ceil(maxOf(ys))),
	)
}

// Contains reports whether p lies inside the quad: the cross products
// against all four edges, walked in order, share a sign.
func (q Quad) Contains(p Point) bool {
	corners := [4]Point{q.TL, q.TR, q.BR, q.BL}
	var pos, neg bool
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross > 0 {
			pos = true
		} else if cross < 0 {
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	return true
}

// At evaluates the bilinear map of the quad at (u, v).
func (q Quad) At(u, v float64) Point {
	a := (1 - u) * (1 - v)
	b := u * (1 - v)
	c := (1 - u) * v
	d := u * v
	return Point{
		X: a*q.TL.X + b*q.TR.X + c*q.BL.X + d*q.BR.X,
		Y: a*q.TL.Y + b*q.TR.Y + c*q.BL.Y + d*q.BR.Y,
	}
}

// Newton iteration parameters for InverseBilinear.
const (
	maxIterations = 10
	damping       = 0.5
	tolerancePx   = 1.0
)

// InverseBilinear finds (u, v) with q.At(u, v) ≈ p by damped Newton
// iteration from the quad center. The result is always clamped to [0,1];
// converged is false when the residual is still above one pixel.
func InverseBilinear(q Quad, p Point) (u, v float64, converged bool) {
	u, v = 0.5, 0.5
	for range maxIterations {
		f := q.At(u, v).sub(p)
		if math.Hypot(f.X, f.Y) < tolerancePx {
			return u, v, true
		}

		// Partial derivatives of At.
		du := q.TR.sub(q.TL).scale(1 - v).add(q.BR.sub(q.BL).scale(v))
		dv := q.BL.sub(q.TL).scale(1 - u).add(q.BR.sub(q.TR).scale(u))

		det := du.X*dv.Y - dv.X*du.Y
		if math.Abs(det) < 1e-12 {
			break
		}
		stepU := (dv.Y*f.X - dv.X*f.Y) / det
		stepV := (du.X*f.Y - du.Y*f.X) / det

		u = clamp01(u - damping*stepU)
		v = clamp01(v - damping*stepV)
	}
	f := q.At(u, v).sub(p)
	return u, v, math.Hypot(f.X, f.Y) < tolerancePx
}

func (p Point) add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// EdgeQuad derives the page-edge region to the right of cover, thicknessPx
// wide at the cover's scale. The cover's depth factor (right height over
// left height) carries on into the edge so it reads as a continuation of
// the cover's right side.
func EdgeQuad(cover Quad, thicknessPx float64) Quad {
	depth := 1.0
	if lh := cover.LeftHeight(); lh > 0 {
		depth = cover.RightHeight() / lh
	}
	edgeW := thicknessPx * depth
	farH := cover.RightHeight() * depth
	cy := (cover.TR.Y + cover.BR.Y) / 2

	return Quad{
		TL: cover.TR,
		BL: cover.BR,
		TR: Point{cover.TR.X + edgeW, cy - farH/2},
		BR: Point{cover.BR.X + edgeW, cy + farH/2},
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = math.Max(m, v)
	}
	return m
}
