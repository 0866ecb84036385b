package composite

import (
	"image/color"

	"github.com/matzehuels/edgeprint/pkg/document"
	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/slice"
)

// Placement is one edge strip drawn on a page, in top-left page coordinates
// (points).
type Placement struct {
	Position slice.Position `json:"position"`
	Leaf     int            `json:"leaf"`
	Mirrored bool           `json:"mirrored"`
	Masked   bool           `json:"masked"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`

	// Placeholder is set when the slice was missing; Color is then drawn instead.
	Placeholder bool        `json:"placeholder,omitempty"`
	Color       color.NRGBA `json:"-"`
}

// PagePlan is everything drawn on one output page.
type PagePlan struct {
	Page int  `json:"page"` // global, zero-indexed
	Leaf int  `json:"leaf"`
	Left bool `json:"left"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Where the original page is drawn, top-left coordinates.
	ContentX float64 `json:"content_x"`
	ContentY float64 `json:"content_y"`
	ContentW float64 `json:"content_w"`
	ContentH float64 `json:"content_h"`

	Placements []Placement       `json:"placements"`
	Skipped    []slice.Position `json:"skipped,omitempty"`
	Trace      []State          `json:"-"`
}

// edgeState maps an edge position to its drawing state.
var edgeState = map[slice.Position]State{
	slice.Side:   DrawSideEdge,
	slice.Top:    DrawTopEdge,
	slice.Bottom: DrawBottomEdge,
}

// Active returns the positions in sets that have a usable set, in drawing order.
func Active(sets map[slice.Position]*slice.Set) []slice.Position {
	var out []slice.Position
	for _, p := range slice.Positions {
		if s, ok := sets[p]; ok && s != nil {
			out = append(out, p)
		}
	}
	return out
}

// PlanPage lays out global page on an output canvas. src is the size of the
// original page. A position present in sets with a nil set failed upstream
// and is skipped; a leaf beyond a set's length gets a placeholder.
func PlanPage(page int, src document.PageSize, l layout.Result, sets map[slice.Position]*slice.Set, paper color.NRGBA) (PagePlan, error) {
	m := newMachine()
	plan := PagePlan{
		Page:     page,
		Leaf:     layout.LeafIndex(page),
		Left:     layout.IsLeftPage(page),
		Width:    l.PageWidth,
		Height:   l.PageHeight,
		ContentW: src.Width,
		ContentH: src.Height,
	}

	if err := m.advance(EmbedOriginal); err != nil {
		return plan, err
	}

	// ContentOffset is in PDF coordinates (origin bottom-left).
	x, y := l.ContentOffset(page)
	plan.ContentX = x
	plan.ContentY = l.PageHeight - y - src.Height
	if err := m.advance(ApplyBleedOffset); err != nil {
		return plan, err
	}

	active := Active(sets)
	masked := len(active) > 1

	for _, pos := range slice.Positions {
		set, requested := sets[pos]
		if !requested {
			continue
		}
		if set == nil {
			plan.Skipped = append(plan.Skipped, pos)
			continue
		}
		if err := m.advance(edgeState[pos]); err != nil {
			return plan, err
		}
		plan.Placements = append(plan.Placements, place(pos, plan, l, set, masked, paper))
	}

	if err := m.advance(Sealed); err != nil {
		return plan, err
	}
	plan.Trace = m.trace
	return plan, nil
}

func place(pos slice.Position, plan PagePlan, l layout.Result, set *slice.Set, masked bool, paper color.NRGBA) Placement {
	p := Placement{
		Position: pos,
		Leaf:     plan.Leaf,
		Mirrored: plan.Left,
		Masked:   masked,
	}

	switch pos {
	case slice.Side:
		p.W, p.H = l.EdgeStripWidth, l.PageHeight
		if !plan.Left {
			p.X = l.PageWidth - l.EdgeStripWidth
		}
	case slice.Top:
		p.W, p.H = l.PageWidth, l.EdgeStripHeight
	case slice.Bottom:
		p.W, p.H = l.PageWidth, l.EdgeStripHeight
		p.Y = l.PageHeight - l.EdgeStripHeight
	}

	if _, ok := set.Slice(plan.Leaf, masked); !ok {
		p.Placeholder = true
		p.Color = set.Average
		if p.Color.A == 0 {
			p.Color = paper
		}
	}
	return p
}
