// Package calibration draws the downloadable edge design template.
//
// The template is one pixel per leaf wide and [layout.TemplatePixelsPerInch]
// tall per inch of trim height. It is transparent, with a guide line every
// [GuideEvery] leaves and a shaded band at the head and tail showing the
// strip thickness that is lost to bleed and safety margin.
package calibration

import (
	"bytes"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
)

// GuideEvery is the spacing of vertical guides, in leaves.
const GuideEvery = 10

// BandPixels is the height of the head and tail bands.
func BandPixels() int {
	return int(math.Round(layout.EdgeStripPoints / layout.PointsPerInch * layout.TemplatePixelsPerInch))
}

// Render draws the calibration template for l.
func Render(l layout.Result) (image.Image, error) {
	w, h := l.Template.WidthPx, l.Template.HeightPx
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidDimensions,
			"template size must be positive, got %dx%d", w, h)
	}

	dc := gg.NewContext(w, h)

	band := float64(min(BandPixels(), h/2))
	dc.SetRGBA(1, 0.3, 0.3, 0.25)
	dc.DrawRectangle(0, 0, float64(w), band)
	dc.DrawRectangle(0, float64(h)-band, float64(w), band)
	dc.Fill()

	dc.SetLineWidth(1)
	for x := GuideEvery; x < w; x += GuideEvery {
		if x%(GuideEvery*10) == 0 {
			dc.SetRGBA(0, 0, 0, 0.6)
		} else {
			dc.SetRGBA(0, 0, 0, 0.25)
		}
		// Half-pixel offset keeps the line on a single column.
		dc.DrawLine(float64(x)+0.5, 0, float64(x)+0.5, float64(h))
		dc.Stroke()
	}

	return dc.Image(), nil
}

// EncodePNG renders the template for l as PNG bytes.
func EncodePNG(l layout.Result) ([]byte, error) {
	img, err := Render(l)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode template")
	}
	return buf.Bytes(), nil
}
