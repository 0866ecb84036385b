package composite

import "fmt"

// State is a step in compositing one output page.
type State int

// Page states in the order they are entered. Edge states are optional.
const (
	Init State = iota
	EmbedOriginal
	ApplyBleedOffset
	DrawSideEdge
	DrawTopEdge
	DrawBottomEdge
	Sealed
)

var stateNames = [...]string{
	Init:             "init",
	EmbedOriginal:    "embed-original",
	ApplyBleedOffset: "apply-bleed-offset",
	DrawSideEdge:     "draw-side-edge",
	DrawTopEdge:      "draw-top-edge",
	DrawBottomEdge:   "draw-bottom-edge",
	Sealed:           "sealed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// next lists the states reachable from each state.
var next = map[State][]State{
	Init:             {EmbedOriginal},
	EmbedOriginal:    {ApplyBleedOffset},
	ApplyBleedOffset: {DrawSideEdge, DrawTopEdge, DrawBottomEdge, Sealed},
	DrawSideEdge:     {DrawTopEdge, DrawBottomEdge, Sealed},
	DrawTopEdge:      {DrawBottomEdge, Sealed},
	DrawBottomEdge:   {Sealed},
}

// machine tracks one page's progress and records every state it enters.
type machine struct {
	state State
	trace []State
}

func newMachine() *machine {
	return &machine{state: Init, trace: []State{Init}}
}

// advance moves to s, failing on a transition the page lifecycle forbids.
func (m *machine) advance(s State) error {
	for _, ok := range next[m.state] {
		if ok == s {
			m.state = s
			m.trace = append(m.trace, s)
			return nil
		}
	}
	return fmt.Errorf("invalid page transition %s -> %s", m.state, s)
}
