package editor

import (
	"slices"

	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

// PickRadius is the hit tolerance in pixels.
const PickRadius = 5.0

// Segment is the drawn form of one interval. Lower and Upper are the
// x positions of the lower and upper handles; Upper is exclusive.
type Segment struct {
	Lower   int   `json:"lower"`
	Upper   int   `json:"upper"`
	Gain    int   `json:"gain"`
	Freq    int   `json:"freq"`
	HasFreq bool  `json:"hasFreq"`
	Enabled bool  `json:"enabled"`
	Values  []int `json:"values"`
}

// hasFreq reports whether a component draws frequency handles.
func hasFreq(m *fgc.Model, c int) bool {
	return m.Comps[c].NumModelValues > 1 && m.ModelID == 0
}

// Build returns the segments of component c of m.
func Build(m *fgc.Model, c int) []Segment {
	comp := m.Comps[c]
	withFreq := hasFreq(m, c)
	segs := make([]Segment, 0, len(comp.Intervals))
	for _, iv := range comp.Intervals {
		s := Segment{
			Lower:   iv.Lower,
			Upper:   iv.Upper + 1,
			Gain:    iv.Gain(),
			HasFreq: withFreq,
			Enabled: iv.Enabled,
			Values:  slices.Clone(iv.Values),
		}
		if withFreq && len(iv.Values) > 1 {
			s.Freq = iv.Values[1]
		}
		segs = append(segs, s)
	}
	return segs
}

// Sync writes segs back into component c of m. Segments whose width is not
// positive are dropped, which merges them into their neighbors.
func Sync(m *fgc.Model, c int, segs []Segment) {
	comp := &m.Comps[c]
	nmv := comp.NumModelValues
	freq := m.ModelID == 0
	intervals := make([]fgc.Interval, 0, len(segs))
	for _, s := range segs {
		if s.Upper <= s.Lower {
			continue
		}
		values := slices.Clone(s.Values)
		if len(values) < nmv {
			values = append(values, make([]int, nmv-len(values))...)
		}
		if nmv > 0 {
			values[0] = s.Gain
		}
		if nmv > 1 && freq {
			values[1] = s.Freq
		}
		if nmv > 2 && freq {
			values[2] = s.Freq
		}
		intervals = append(intervals, fgc.Interval{
			Lower:   s.Lower,
			Upper:   s.Upper - 1,
			Values:  values,
			Enabled: s.Enabled,
		})
	}
	comp.Intervals = intervals
}

func cloneSegments(in []Segment) []Segment {
	out := make([]Segment, len(in))
	for k, s := range in {
		s.Values = slices.Clone(s.Values)
		out[k] = s
	}
	return out
}

func (s Segment) hitLower(a Axes, x, y float64) bool {
	px := a.X(float64(s.Lower))
	return distance(x, y, px, a.GainY(0), px, a.GainY(float64(s.Gain))) <= PickRadius
}

func (s Segment) hitUpper(a Axes, x, y float64) bool {
	px := a.X(float64(s.Upper))
	return distance(x, y, px, a.GainY(0), px, a.GainY(float64(s.Gain))) <= PickRadius
}

func (s Segment) hitGain(a Axes, x, y float64) bool {
	py := a.GainY(float64(s.Gain))
	return distance(x, y, a.X(float64(s.Lower)), py, a.X(float64(s.Upper)), py) <= PickRadius
}

func (s Segment) hitFreq(a Axes, x, y float64) bool {
	if !s.HasFreq {
		return false
	}
	py := a.FreqY(float64(s.Freq))
	return distance(x, y, a.X(float64(s.Lower)), py, a.X(float64(s.Upper)), py) <= PickRadius
}

// LineKind identifies a handle family.
type LineKind string

const (
	LineLower LineKind = "lower"
	LineUpper LineKind = "upper"
	LineGain  LineKind = "gain"
	LineFreq  LineKind = "freq"
)

// Line is a handle in pixel coordinates, ready to draw.
type Line struct {
	Kind    LineKind `json:"kind"`
	Index   int      `json:"index"`
	X0      float64  `json:"x0"`
	Y0      float64  `json:"y0"`
	X1      float64  `json:"x1"`
	Y1      float64  `json:"y1"`
	Enabled bool     `json:"enabled"`
}

// Lines returns the handles of segs in pixel coordinates.
func Lines(a Axes, segs []Segment) []Line {
	var out []Line
	for k, s := range segs {
		x0, x1 := a.X(float64(s.Lower)), a.X(float64(s.Upper))
		base, top := a.GainY(0), a.GainY(float64(s.Gain))
		out = append(out,
			Line{Kind: LineLower, Index: k, X0: x0, Y0: base, X1: x0, Y1: top, Enabled: s.Enabled},
			Line{Kind: LineUpper, Index: k, X0: x1, Y0: base, X1: x1, Y1: top, Enabled: s.Enabled},
			Line{Kind: LineGain, Index: k, X0: x0, Y0: top, X1: x1, Y1: top, Enabled: s.Enabled},
		)
		if s.HasFreq {
			fy := a.FreqY(float64(s.Freq))
			out = append(out, Line{Kind: LineFreq, Index: k, X0: x0, Y0: fy, X1: x1, Y1: fy, Enabled: s.Enabled})
		}
	}
	return out
}
