// Package scale maps target UV coordinates back into a source image for
// the five edge scaling modes.
//
// Both the slice generator and the mockup renderer sample through [Map], so
// an edge design looks the same in the preview as it does in print.
package scale

import (
	"strings"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Mode selects how a source image is fitted to a target of another aspect.
type Mode string

// Scaling modes.
const (
	Stretch     Mode = "stretch"
	Fit         Mode = "fit"
	Fill        Mode = "fill"
	None        Mode = "none"
	ExtendSides Mode = "extend-sides"
)

// Default is the recommended mode.
const Default = Fill

// ExtendFraction is the share of U on each side that repeats the edge column.
const ExtendFraction = 0.05

// Modes lists every supported mode.
var Modes = []Mode{Stretch, Fit, Fill, None, ExtendSides}

// Parse converts s into a Mode; empty means Default.
func Parse(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	for _, m := range Modes {
		if Mode(s) == m {
			return m, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidScaleMode,
		"invalid scale mode: %q (must be stretch, fit, fill, none, or extend-sides)", s)
}

// Size is a pixel width and height.
type Size struct {
	W, H float64
}

func (s Size) aspect() float64 {
	if s.H <= 0 {
		return 1
	}
	return s.W / s.H
}

// Map converts a target coordinate (u, v) in [0,1]² into a source
// coordinate (su, sv). ok is false when the target pixel has no source
// pixel (the transparent gaps of fit and none).
func Map(m Mode, u, v float64, src, dst Size) (su, sv float64, ok bool) {
	switch m {
	case Stretch:
		return u, v, true

	case Fit:
		sa, da := src.aspect(), dst.aspect()
		if sa > da {
			// Source relatively wider: full width, letterbox vertically.
			sv = (v-0.5)*sa/da + 0.5
			return u, sv, inUnit(sv)
		}
		su = (u-0.5)*da/sa + 0.5
		return su, v, inUnit(su)

	case None:
		if src.W <= 0 || src.H <= 0 {
			return 0, 0, false
		}
		su = (u-0.5)*dst.W/src.W + 0.5
		sv = (v-0.5)*dst.H/src.H + 0.5
		return su, sv, inUnit(su) && inUnit(sv)

	case ExtendSides:
		switch {
		case u < ExtendFraction:
			su = 0
		case u > 1-ExtendFraction:
			su = 1
		default:
			su = (u - ExtendFraction) / (1 - 2*ExtendFraction)
		}
		return su, v, true

	default: // Fill
		sa, da := src.aspect(), dst.aspect()
		if sa > da {
			// Source relatively wider: crop left and right equally.
			su = (u-0.5)*da/sa + 0.5
			return su, v, true
		}
		sv = (v-0.5)*sa/da + 0.5
		return u, sv, true
	}
}

func inUnit(x float64) bool {
	return x >= 0 && x <= 1
}
