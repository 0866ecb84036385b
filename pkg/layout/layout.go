package layout

import (
	"math"
	"strings"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Physical constants.
const (
	PointsPerInch      = 72.0
	BleedInches        = 0.125
	SafetyBufferInches = 0.125

	// EdgeStripPoints is the thickness of every edge strip: bleed plus safety buffer.
	EdgeStripPoints = (BleedInches + SafetyBufferInches) * PointsPerInch

	// TemplatePixelsPerInch is the vertical density of calibration templates.
	TemplatePixelsPerInch = 285.7
)

// BleedType says whether the source document already carries bleed.
type BleedType string

// Bleed types.
const (
	AddBleed      BleedType = "add_bleed"
	ExistingBleed BleedType = "existing_bleed"
)

// ParseBleedType converts a string into a BleedType.
func ParseBleedType(s string) (BleedType, error) {
	switch b := BleedType(strings.TrimSpace(s)); b {
	case AddBleed, ExistingBleed:
		return b, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidBleedType,
			"invalid bleed type: %q (must be add_bleed or existing_bleed)", s)
	}
}

// PageType is the paper stock, which determines sheet thickness.
type PageType string

// Paper stocks.
const (
	PageBW       PageType = "bw"
	PageStandard PageType = "standard"
	PagePremium  PageType = "premium"
)

// DefaultPageType is used when the caller does not name a stock.
const DefaultPageType = PageStandard

// leafThicknessInches is the thickness of one sheet per stock.
var leafThicknessInches = map[PageType]float64{
	PageBW:       0.0032,
	PageStandard: 0.0032,
	PagePremium:  0.0037,
}

// ParsePageType converts a string into a PageType. Empty means DefaultPageType.
func ParsePageType(s string) (PageType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPageType, nil
	}
	p := PageType(s)
	if _, ok := leafThicknessInches[p]; !ok {
		return "", errors.New(errors.ErrCodeInvalidPageType,
			"invalid page type: %q (must be bw, standard, or premium)", s)
	}
	return p, nil
}

// LeafThickness returns the thickness of one sheet of p in inches.
func (p PageType) LeafThickness() float64 {
	if t, ok := leafThicknessInches[p]; ok {
		return t
	}
	return leafThicknessInches[DefaultPageType]
}

// Params are the inputs to Compute.
type Params struct {
	TrimWidth  float64 // inches
	TrimHeight float64 // inches
	PageCount  int
	Bleed      BleedType
	PageType   PageType // optional, defaults to DefaultPageType
}

// Validate checks Params without computing anything.
func (p Params) Validate() error {
	if err := errors.ValidatePositive("trim width", p.TrimWidth); err != nil {
		return err
	}
	if err := errors.ValidatePositive("trim height", p.TrimHeight); err != nil {
		return err
	}
	if err := errors.ValidatePageCount(p.PageCount); err != nil {
		return err
	}
	if _, err := ParseBleedType(string(p.Bleed)); err != nil {
		return err
	}
	if p.PageType != "" {
		if _, err := ParsePageType(string(p.PageType)); err != nil {
			return err
		}
	}
	return nil
}

// Size is a width and height in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TemplateSize is the pixel size of a calibration template.
type TemplateSize struct {
	WidthPx  int `json:"width_px"`
	HeightPx int `json:"height_px"`
}

// Result holds every dimension derived from Params.
type Result struct {
	Params Params `json:"-"`

	LeafCount int `json:"leaf_count"`

	// TrimWidthPt and TrimHeightPt are the trim size in points.
	TrimWidthPt  float64 `json:"trim_width_pt"`
	TrimHeightPt float64 `json:"trim_height_pt"`

	// PageWidth and PageHeight are the output page size in points.
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`

	// BleedOffset is how far original content moves on the new canvas (0 for existing bleed).
	BleedOffset float64 `json:"bleed_offset"`

	// EdgeStripWidth and EdgeStripHeight are the strip thickness in points.
	EdgeStripWidth  float64 `json:"edge_strip_width"`
	EdgeStripHeight float64 `json:"edge_strip_height"`

	// EdgeThicknessInches is the physical thickness of the page block.
	EdgeThicknessInches float64 `json:"edge_thickness_inches"`

	Template TemplateSize `json:"template"`
}

// Compute derives the layout for p.
func Compute(p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if p.PageType == "" {
		p.PageType = DefaultPageType
	}

	r := Result{
		Params:          p,
		LeafCount:       LeafCount(p.PageCount),
		TrimWidthPt:     p.TrimWidth * PointsPerInch,
		TrimHeightPt:    p.TrimHeight * PointsPerInch,
		EdgeStripWidth:  EdgeStripPoints,
		EdgeStripHeight: EdgeStripPoints,
	}

	r.PageWidth, r.PageHeight = r.TrimWidthPt, r.TrimHeightPt
	if p.Bleed == AddBleed {
		r.BleedOffset = EdgeStripPoints
		r.PageWidth += EdgeStripPoints
		r.PageHeight += 2 * EdgeStripPoints
	}

	r.EdgeThicknessInches = float64(r.LeafCount) * p.PageType.LeafThickness()
	r.Template = TemplateSize{
		WidthPx:  r.LeafCount,
		HeightPx: int(math.Round(p.TrimHeight * TemplatePixelsPerInch)),
	}
	return r, nil
}

// Page returns the output page size.
func (r Result) Page() Size {
	return Size{Width: r.PageWidth, Height: r.PageHeight}
}

// SideStrip is the size of the fore-edge strip: strip thick, page tall.
func (r Result) SideStrip() Size {
	return Size{Width: r.EdgeStripWidth, Height: r.PageHeight}
}

// HeadStrip is the size of a top or bottom strip: page wide, strip thick.
func (r Result) HeadStrip() Size {
	return Size{Width: r.PageWidth, Height: r.EdgeStripHeight}
}

// ContentOffset returns where the original page's lower-left corner goes on
// the output canvas, in points. Left pages also shift right by the bleed so
// the gutter margin is preserved.
func (r Result) ContentOffset(page int) (x, y float64) {
	if r.BleedOffset == 0 {
		return 0, 0
	}
	if IsLeftPage(page) {
		return r.BleedOffset, r.BleedOffset
	}
	return 0, r.BleedOffset
}
