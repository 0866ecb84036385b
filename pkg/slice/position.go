package slice

import (
	"strings"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Position is a page edge that can carry a design.
type Position string

// Edge positions.
const (
	Side   Position = "side"
	Top    Position = "top"
	Bottom Position = "bottom"
)

// Positions lists every edge position in drawing order.
var Positions = []Position{Side, Top, Bottom}

// ParsePosition converts a string into a Position.
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case Side, Top, Bottom:
		return p, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidEdgePosition,
			"invalid edge position: %q (must be side, top, or bottom)", s)
	}
}

// Horizontal reports whether p runs along the page width.
func (p Position) Horizontal() bool {
	return p == Top || p == Bottom
}

// Corners marks which ends of a strip adjoin another active edge position.
// Side strips use Top and Bottom; top and bottom strips use Side, which is
// their fore-edge end.
type Corners struct {
	Top    bool
	Bottom bool
	Side   bool
}

// Any reports whether at least one end is mitred.
func (c Corners) Any() bool {
	return c.Top || c.Bottom || c.Side
}

// CornersFor returns the mitred ends of pos given the set of active positions.
func CornersFor(pos Position, active []Position) Corners {
	has := func(p Position) bool {
		for _, a := range active {
			if a == p {
				return true
			}
		}
		return false
	}

	switch pos {
	case Side:
		return Corners{Top: has(Top), Bottom: has(Bottom)}
	case Top, Bottom:
		return Corners{Side: has(Side)}
	}
	return Corners{}
}
