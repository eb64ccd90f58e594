// Package editor turns pointer gestures on the interval plot into
// mutations of an fgc.Model.
package editor

import (
	"math"
	"slices"

	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

// Button identifies the pointer button of an event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Event is a pointer event in plot pixel coordinates.
type Event struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Button      Button  `json:"button"`
	DoubleClick bool    `json:"dblclick"`
}

// State is the gesture state between pointer-down and pointer-up.
type State struct {
	Lower []int `json:"lower,omitempty"`
	Upper []int `json:"upper,omitempty"`
	Gain  []int `json:"gain,omitempty"`
	Freq  []int `json:"freq,omitempty"`

	// Min and Max clamp the intensity of grabbed boundaries.
	Min int `json:"min"`
	Max int `json:"max"`

	// Hovered is the interval under the pointer, or -1.
	Hovered int `json:"hovered"`

	SplitStaged bool `json:"splitStaged"`
	SplitAt     int  `json:"splitAt"`

	Button  Button `json:"button"`
	Dragged bool   `json:"dragged"`
	Active  bool   `json:"active"`
}

// Picked reports whether any handle was grabbed.
func (s State) Picked() bool {
	return len(s.Lower)+len(s.Upper)+len(s.Gain)+len(s.Freq) > 0
}

// Idle is the state outside of a gesture.
var Idle = State{Hovered: -1, Max: IntensityRange}

func firstHit(segs []Segment, hit func(Segment) bool) []int {
	for k, s := range segs {
		if hit(s) {
			return []int{k}
		}
	}
	return nil
}

func allHits(segs []Segment, hit func(Segment) bool, restrict []int) []int {
	var out []int
	for k, s := range segs {
		if !hit(s) {
			continue
		}
		if len(restrict) > 0 && !slices.Contains(restrict, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Pick hit-tests a pointer-down event against segs. A grabbed boundary
// takes the colocated boundary of its neighbor with it. Gain and frequency
// handles only qualify when they belong to a grabbed boundary's interval,
// and at most one of the two families is grabbed.
func Pick(segs []Segment, a Axes, ev Event) State {
	st := Idle
	st.Active = true
	st.Button = ev.Button
	x, y := ev.X, ev.Y

	st.Lower = firstHit(segs, func(s Segment) bool { return s.hitLower(a, x, y) })
	var upper []int
	if len(st.Lower) > 0 {
		at := segs[st.Lower[0]].Lower
		upper = firstHit(segs, func(s Segment) bool { return s.Upper == at })
	}
	if len(upper) == 0 {
		upper = firstHit(segs, func(s Segment) bool { return s.hitUpper(a, x, y) })
		if len(upper) > 0 && len(st.Lower) == 0 {
			at := segs[upper[0]].Upper
			st.Lower = firstHit(segs, func(s Segment) bool { return s.Lower == at })
		}
	}
	st.Upper = upper

	st.Min, st.Max = 0, IntensityRange
	switch {
	case len(st.Upper) > 0:
		st.Min = segs[st.Upper[0]].Lower
	case len(st.Lower) > 0:
		at := segs[st.Lower[0]].Lower
		for _, s := range segs {
			for _, b := range []int{s.Lower, s.Upper} {
				if b < at && b > st.Min {
					st.Min = b
				}
			}
		}
	}
	switch {
	case len(st.Lower) > 0:
		st.Max = segs[st.Lower[0]].Upper
	case len(st.Upper) > 0:
		at := segs[st.Upper[0]].Upper
		for _, s := range segs {
			for _, b := range []int{s.Lower, s.Upper} {
				if b > at && b < st.Max {
					st.Max = b
				}
			}
		}
	}

	bounds := slices.Concat(st.Lower, st.Upper)
	st.Gain = allHits(segs, func(s Segment) bool { return s.hitGain(a, x, y) }, bounds)
	if len(st.Gain) == 0 {
		st.Freq = allHits(segs, func(s Segment) bool { return s.hitFreq(a, x, y) }, bounds)
	}

	xi := a.Intensity(x)
	for k, s := range segs {
		if xi >= float64(s.Lower) && xi < float64(s.Upper) {
			st.Hovered = k
			break
		}
	}
	if st.Hovered >= 0 && ev.DoubleClick && ev.Button == ButtonPrimary {
		st.SplitStaged = true
		st.SplitAt = int(math.RoundToEven(xi))
	}
	return st
}

// Drag applies a pointer-move to segs in place and reports whether anything
// moved.
func Drag(segs []Segment, st State, a Axes, ev Event) bool {
	if !st.Picked() {
		return false
	}
	i, g, f := a.values(ev.X, ev.Y)
	i = max(st.Min, min(st.Max, i))
	f = max(2, f)

	for _, k := range st.Lower {
		segs[k].Lower = i
	}
	for _, k := range st.Upper {
		segs[k].Upper = i
	}
	for _, k := range st.Gain {
		segs[k].Gain = g
	}
	for _, k := range st.Freq {
		segs[k].Freq = f
	}
	return true
}

// Outcome is what a pointer-up applied to the model.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeCommitted Outcome = "committed"
	OutcomeSplit     Outcome = "split"
	OutcomeToggled   Outcome = "toggled"
)

// Editor owns the drawn segments of one component of a model and applies
// gestures to it. It is not safe for concurrent use.
type Editor struct {
	model     *fgc.Model
	component int
	axes      Axes
	segs      []Segment
	state     State
}

// New returns an editor on component 0 of m.
func New(m *fgc.Model, axes Axes) *Editor {
	e := &Editor{model: m, axes: axes, state: Idle}
	e.Refresh()
	return e
}

// Model returns the edited model.
func (e *Editor) Model() *fgc.Model { return e.model }

// Component returns the active component.
func (e *Editor) Component() int { return e.component }

// SetComponent switches the active component and aborts any gesture.
func (e *Editor) SetComponent(c int) bool {
	if c < 0 || c >= fgc.NumComponents {
		return false
	}
	e.component = c
	e.Refresh()
	return true
}

// Axes returns the plot area.
func (e *Editor) Axes() Axes { return e.axes }

// SetAxes changes the plot area.
func (e *Editor) SetAxes(a Axes) {
	if a.Width > 0 && a.Height > 0 {
		e.axes = a
	}
}

// Refresh rebuilds the segments from the model and aborts any gesture.
// Call it after changing the model outside the editor.
func (e *Editor) Refresh() {
	e.segs = Build(e.model, e.component)
	e.state = Idle
}

// State returns the current gesture state.
func (e *Editor) State() State { return e.state }

// Segments returns a copy of the drawn segments.
func (e *Editor) Segments() []Segment { return cloneSegments(e.segs) }

// Lines returns the handles in pixel coordinates.
func (e *Editor) Lines() []Line { return Lines(e.axes, e.segs) }

// PointerDown starts a gesture. Events outside the plot area are ignored.
func (e *Editor) PointerDown(ev Event) State {
	if !e.axes.Contains(ev.X, ev.Y) {
		e.state = Idle
		return e.state
	}
	e.state = Pick(e.segs, e.axes, ev)
	return e.state
}

// PointerMove drags the grabbed handles and refreshes the model from the
// segments. It reports whether the model changed.
func (e *Editor) PointerMove(ev Event) bool {
	if !e.state.Active || !e.axes.Contains(ev.X, ev.Y) {
		return false
	}
	if !Drag(e.segs, e.state, e.axes, ev) {
		return false
	}
	e.state.Dragged = true
	Sync(e.model, e.component, e.segs)
	return true
}

// PointerUp ends the gesture: a staged split is applied unless handles were
// dragged, a secondary click on an interval toggles it, and anything else
// commits the segments to the model.
func (e *Editor) PointerUp(ev Event) Outcome {
	st := e.state
	if !st.Active {
		return OutcomeNone
	}
	defer e.Refresh()

	if st.SplitStaged && !st.Dragged {
		if e.model.Split(e.component, st.Hovered, st.SplitAt) {
			return OutcomeSplit
		}
		return OutcomeNone
	}
	if !st.Picked() && st.Hovered >= 0 && st.Button == ButtonSecondary && ev.Button == ButtonSecondary {
		enabled := e.model.Comps[e.component].Intervals[st.Hovered].Enabled
		e.model.SetEnabled(e.component, st.Hovered, !enabled)
		return OutcomeToggled
	}

	Sync(e.model, e.component, e.segs)
	if st.Dragged {
		return OutcomeCommitted
	}
	return OutcomeNone
}
