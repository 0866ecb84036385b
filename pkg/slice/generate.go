package slice

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/scale"
)

// DefaultPixelsPerPoint is the raster density of generated slices.
const DefaultPixelsPerPoint = 1.0

// Request describes one SliceSet to generate.
type Request struct {
	Position  Position
	LeafCount int
	Mode      scale.Mode

	// Strip is the strip size on the page in points: SideStrip for side,
	// HeadStrip for top and bottom.
	Strip layout.Size

	// PixelsPerPoint is the raster density. Zero means DefaultPixelsPerPoint.
	PixelsPerPoint float64

	// Corners selects the mitred ends of the masked variant.
	Corners Corners
}

// ValidateAndSetDefaults checks the request and fills in defaults.
func (r *Request) ValidateAndSetDefaults() error {
	if _, err := ParsePosition(string(r.Position)); err != nil {
		return err
	}
	if r.LeafCount <= 0 {
		return errors.New(errors.ErrCodeInvalidPageCount, "leaf count must be positive, got %d", r.LeafCount)
	}
	if err := errors.ValidatePositive("strip width", r.Strip.Width); err != nil {
		return err
	}
	if err := errors.ValidatePositive("strip height", r.Strip.Height); err != nil {
		return err
	}
	mode, err := scale.Parse(string(r.Mode))
	if err != nil {
		return err
	}
	r.Mode = mode
	if r.PixelsPerPoint == 0 {
		r.PixelsPerPoint = DefaultPixelsPerPoint
	}
	if err := errors.ValidatePositive("pixels per point", r.PixelsPerPoint); err != nil {
		return err
	}
	return nil
}

// SlicePixels returns the pixel size of each slice as drawn on the page.
func (r Request) SlicePixels() (w, h int) {
	return pixels(r.Strip.Width * r.PixelsPerPoint), pixels(r.Strip.Height * r.PixelsPerPoint)
}

// columnPixels returns the size of one leaf column before rotation: the
// strip thickness by the strip length.
func (r Request) columnPixels() (w, h int) {
	sw, sh := r.SlicePixels()
	if r.Position.Horizontal() {
		return sh, sw
	}
	return sw, sh
}

func pixels(v float64) int {
	return max(1, int(math.Round(v)))
}

// Columns returns the source column range [start, end) for slice i of n
// over a source of the given width.
func Columns(i, n, width int) (start, end int) {
	return i * width / n, (i + 1) * width / n
}

// Generate cuts src into req.LeafCount slices.
func Generate(src Source, req Request) (*Set, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	img := src.Image()
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeSliceUnavailable, "edge image is empty").WithEdge(string(req.Position))
	}

	set := &Set{
		Position: req.Position,
		Raw:      make([]*image.NRGBA, req.LeafCount),
		Masked:   make([]*image.NRGBA, req.LeafCount),
		Average:  averageColor(img),
	}

	cw, ch := req.columnPixels()
	for i := range req.LeafCount {
		var col *image.NRGBA
		if req.Mode == scale.Stretch {
			col = stretchColumn(img, i, req.LeafCount, cw, ch)
		} else {
			col = mappedColumn(img, i, req.LeafCount, cw, ch, req.Mode)
		}

		raw := orient(col, req.Position)
		set.Raw[i] = raw
		if req.Corners.Any() {
			set.Masked[i] = Mask(raw, req.Position, req.Corners)
		} else {
			set.Masked[i] = raw
		}
	}
	return set, nil
}

// stretchColumn resamples source column i directly into a cw×ch image.
func stretchColumn(img *image.NRGBA, i, n, cw, ch int) *image.NRGBA {
	b := img.Bounds()
	start, end := Columns(i, n, b.Dx())
	if start == end {
		// More leaves than source pixels: use the column under the slice center.
		c := int(math.Floor((float64(i) + 0.5) * float64(b.Dx()) / float64(n)))
		start, end = c, c+1
	}
	sr := image.Rect(b.Min.X+start, b.Min.Y, b.Min.X+end, b.Max.Y)

	dst := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, sr, draw.Src, nil)
	return dst
}

// mappedColumn renders column i by mapping every target pixel through the
// scaling mode. The virtual target is all n columns side by side.
func mappedColumn(img *image.NRGBA, i, n, cw, ch int, mode scale.Mode) *image.NRGBA {
	b := img.Bounds()
	src := scale.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	dstSize := scale.Size{W: float64(cw * n), H: float64(ch)}

	dst := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	for y := range ch {
		v := (float64(y) + 0.5) / float64(ch)
		for x := range cw {
			u := (float64(i) + (float64(x)+0.5)/float64(cw)) / float64(n)
			su, sv, ok := scale.Map(mode, u, v, src, dstSize)
			if !ok {
				continue
			}
			dst.SetNRGBA(x, y, scale.SampleBilinear(img, su, sv))
		}
	}
	return dst
}

// orient turns a leaf column into its on-page orientation.
func orient(col *image.NRGBA, pos Position) *image.NRGBA {
	switch pos {
	case Top:
		return imaging.Rotate90(col)
	case Bottom:
		return imaging.FlipV(imaging.Rotate90(col))
	default:
		return col
	}
}
