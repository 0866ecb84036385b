package pipeline

import (
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/scale"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// Design is a validated edge decoration request.
type Design struct {
	TrimWidth  float64          `json:"trim_width"`
	TrimHeight float64          `json:"trim_height"`
	PageCount  int              `json:"page_count,omitempty"` // zero means take it from the document
	Bleed      layout.BleedType `json:"bleed_type"`
	PageType   layout.PageType  `json:"page_type,omitempty"`
	Mode       scale.Mode       `json:"scale_mode,omitempty"`

	// Edges holds the source for each decorated position: encoded image
	// bytes or a hex colour such as "#aa3300".
	Edges map[slice.Position][]byte `json:"edges,omitempty"`
}

// Validate checks the design and normalizes enum fields.
func (d *Design) Validate() error {
	bleed, err := layout.ParseBleedType(string(d.Bleed))
	if err != nil {
		return err
	}
	d.Bleed = bleed

	pt, err := layout.ParsePageType(string(d.PageType))
	if err != nil {
		return err
	}
	d.PageType = pt

	mode, err := scale.Parse(string(d.Mode))
	if err != nil {
		return err
	}
	d.Mode = mode

	if err := errors.ValidatePositive("trim width", d.TrimWidth); err != nil {
		return err
	}
	if err := errors.ValidatePositive("trim height", d.TrimHeight); err != nil {
		return err
	}
	if d.PageCount < 0 {
		return errors.ValidatePageCount(d.PageCount)
	}

	if len(d.Edges) == 0 {
		return errors.New(errors.ErrCodeInvalidEdgePosition, "at least one edge position is required")
	}
	edges := make(map[slice.Position][]byte, len(d.Edges))
	for key, src := range d.Edges {
		pos, err := slice.ParsePosition(string(key))
		if err != nil {
			return err
		}
		if len(src) == 0 {
			return errors.New(errors.ErrCodeInvalidImage, "edge source for %s is empty", pos).WithEdge(string(pos))
		}
		edges[pos] = src
	}
	d.Edges = edges
	return nil
}

// Positions returns the decorated positions in drawing order.
func (d *Design) Positions() []slice.Position {
	var out []slice.Position
	for _, p := range slice.Positions {
		if _, ok := d.Edges[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Layout computes the layout for a document of pageCount pages.
func (d *Design) Layout(pageCount int) (layout.Result, error) {
	return layout.Compute(layout.Params{
		TrimWidth:  d.TrimWidth,
		TrimHeight: d.TrimHeight,
		PageCount:  pageCount,
		Bleed:      d.Bleed,
		PageType:   d.PageType,
	})
}

// withoutEdges returns a copy of d that does not carry source bytes.
func (d Design) withoutEdges() Design {
	d.Edges = nil
	return d
}
