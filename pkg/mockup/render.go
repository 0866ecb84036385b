package mockup

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/scale"
)

// Rendering defaults.
const (
	DefaultEdgeOpacity = 0.6
	MinEdgePixels      = 2.0

	shadowOpacity = 0.35
)

// DefaultPaperColor is the colour of bare page edges.
var DefaultPaperColor = color.NRGBA{R: 245, G: 240, B: 230, A: 255}

// Renderer composites cover and edge designs into a template.
type Renderer struct {
	Template    image.Image
	PaperColor  color.NRGBA
	EdgeOpacity float64
	Logger      *log.Logger
}

// Request is one mockup render. Cover and Edge are optional.
type Request struct {
	Cover  image.Image
	Edge   image.Image
	Layout layout.Result
	Mode   scale.Mode
}

// Stats describes a finished render.
type Stats struct {
	Cover        Quad
	Edge         Quad
	Marker       bool
	ThicknessPx  float64
	NonConverged int
}

// Render returns the template with the cover and edge designs warped in.
func (r *Renderer) Render(ctx context.Context, req Request) (*image.NRGBA, Stats, error) {
	start := time.Now()
	img, stats, err := r.render(req)

	var w, h int
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	observability.Pipeline().OnMockupComplete(ctx, w, h, time.Since(start), err)
	return img, stats, err
}

func (r *Renderer) render(req Request) (*image.NRGBA, Stats, error) {
	if r.Template == nil {
		return nil, Stats{}, errors.New(errors.ErrCodeInvalidImage, "mockup template is not loaded")
	}
	if err := req.Layout.Params.Validate(); err != nil {
		return nil, Stats{}, err
	}
	mode := req.Mode
	if mode == "" {
		mode = scale.Default
	}

	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	paper := r.PaperColor
	if paper.A == 0 {
		paper = DefaultPaperColor
	}
	opacity := r.EdgeOpacity
	if opacity <= 0 || opacity > 1 {
		opacity = DefaultEdgeOpacity
	}

	dst := imaging.Clone(r.Template)
	var stats Stats
	stats.Cover, stats.Marker = FindMarker(dst)
	if !stats.Marker {
		stats.Cover = FallbackQuad(dst.Bounds())
	}
	if req.Cover == nil {
		return dst, stats, nil
	}

	_, coverH := stats.Cover.Size()
	stats.ThicknessPx = math.Max(MinEdgePixels,
		req.Layout.EdgeThicknessInches*coverH/req.Layout.Params.TrimHeight)
	stats.Edge = EdgeQuad(stats.Cover, stats.ThicknessPx)

	fill(dst, stats.Edge, paper)
	if req.Edge != nil {
		stats.NonConverged += warp(dst, imaging.Clone(req.Edge), stats.Edge, mode, opacity, printedEdge(req.Layout))
	}
	shadow(dst, stats.Cover, stats.Edge)
	// Fit and none leave parts of the quad unsampled; the marker must not show there.
	fill(dst, stats.Cover, paper)
	cw, ch := stats.Cover.Size()
	stats.NonConverged += warp(dst, imaging.Clone(req.Cover), stats.Cover, mode, 1, scale.Size{W: cw, H: ch})

	if stats.NonConverged > 0 {
		logger.Debug("inverse mapping did not converge", "pixels", stats.NonConverged)
	}
	return dst, stats, nil
}

// RenderPNG renders req and encodes the result as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, req Request) ([]byte, error) {
	img, _, err := r.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode mockup")
	}
	return buf.Bytes(), nil
}

// printedEdge is the virtual target the slicer fits an edge design to:
// every leaf's strip side by side, by the strip length.
func printedEdge(l layout.Result) scale.Size {
	strip := l.SideStrip()
	return scale.Size{W: strip.Width * float64(max(1, l.LeafCount)), H: strip.Height}
}

// warp maps src into q on dst, blending with the given opacity. The scaling
// mode fits src to target, and the result is stretched across q. It
// returns the number of pixels whose inverse mapping did not converge.
func warp(dst, src *image.NRGBA, q Quad, mode scale.Mode, opacity float64, target scale.Size) int {
	sb := src.Bounds()
	srcSize := scale.Size{W: float64(sb.Dx()), H: float64(sb.Dy())}

	var nonConverged int
	area := q.Bounds().Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			p := Point{float64(x) + 0.5, float64(y) + 0.5}
			if !q.Contains(p) {
				continue
			}
			u, v, ok := InverseBilinear(q, p)
			if !ok {
				nonConverged++
			}
			su, sv, in := scale.Map(mode, u, v, srcSize, target)
			if !in {
				continue
			}
			blend(dst, x, y, scale.SampleBilinear(src, su, sv), opacity)
		}
	}
	return nonConverged
}

func fill(dst *image.NRGBA, q Quad, c color.NRGBA) {
	area := q.Bounds().Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if q.Contains(Point{float64(x) + 0.5, float64(y) + 0.5}) {
				blend(dst, x, y, c, 1)
			}
		}
	}
}

// shadow draws a blurred ellipse under the bottom of the book.
func shadow(dst *image.NRGBA, cover, edge Quad) {
	b := dst.Bounds()
	left := cover.BL.X
	right := edge.BR.X
	bottom := math.Max(cover.BL.Y, edge.BR.Y)
	rx := (right - left) * 0.55
	ry := math.Max(4, (bottom-cover.TL.Y)*0.03)

	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawEllipse((left+right)/2-float64(b.Min.X), bottom-float64(b.Min.Y), rx, ry)
	dc.SetRGBA(0, 0, 0, shadowOpacity)
	dc.Fill()

	blurred := imaging.Blur(dc.Image(), math.Max(2, ry))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := blurred.NRGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			blend(dst, x+b.Min.X, y+b.Min.Y, c, 1)
		}
	}
}

// blend draws c over the pixel at (x, y) with c's alpha scaled by opacity.
func blend(dst *image.NRGBA, x, y int, c color.NRGBA, opacity float64) {
	sa := float64(c.A) / 255 * opacity
	if sa <= 0 {
		return
	}
	i := dst.PixOffset(x, y)
	d := dst.Pix[i : i+4 : i+4]
	da := float64(d[3]) / 255
	oa := sa + da*(1-sa)
	if oa <= 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*sa + float64(d)*da*(1-sa)) / oa
		return uint8(math.Round(math.Min(255, v)))
	}
	d[0] = mix(c.R, d[0])
	d[1] = mix(c.G, d[1])
	d[2] = mix(c.B, d[2])
	d[3] = uint8(math.Round(oa * 255))
}
