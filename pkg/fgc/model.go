// Package fgc models film grain characteristics parameters: a per-component
// partition of the 8-bit intensity range into intervals carrying a noise
// gain and optional frequency cutoffs.
package fgc

import (
	"errors"
	"fmt"
	"slices"
)

// NumComponents is the number of color components (Y, Cb, Cr).
const NumComponents = 3

// MaxIntensity is the highest sample value an interval bound may take.
const MaxIntensity = 255

// DefaultGlobalGain is the unity global gain percentage.
const DefaultGlobalGain = 100

// Interval is one contiguous intensity range of a component.
type Interval struct {
	Lower   int   `json:"lower"`
	Upper   int   `json:"upper"`
	Values  []int `json:"values"`
	Enabled bool  `json:"enabled"`
}

// Gain returns the first model value, or 0 if none.
func (iv Interval) Gain() int {
	if len(iv.Values) == 0 {
		return 0
	}
	return iv.Values[0]
}

// Component holds the interval partition of one color component.
type Component struct {
	Present        bool       `json:"present"`
	NumModelValues int        `json:"numModelValues"`
	Intervals      []Interval `json:"intervals"`
}

// Model is the film grain parameter set edited by a session.
type Model struct {
	ModelID         int                      `json:"modelId"`
	Log2ScaleFactor int                      `json:"log2ScaleFactor"`
	GlobalGain      int                      `json:"globalGain"`
	Comps           [NumComponents]Component `json:"components"`
}

var componentNames = [NumComponents]string{"Y", "Cb", "Cr"}

// ComponentName returns the display name of component c.
func ComponentName(c int) string {
	if c < 0 || c >= NumComponents {
		return fmt.Sprintf("comp%d", c)
	}
	return componentNames[c]
}

var (
	defaultLumaLower   = []int{0, 40, 60, 80, 100, 120, 140, 160}
	defaultLumaUpper   = []int{39, 59, 79, 99, 119, 139, 159, 255}
	defaultChromaLower = []int{0, 64, 96, 112, 128, 144, 160, 192}
	defaultChromaUpper = []int{63, 95, 111, 127, 143, 159, 191, 255}

	// gain, horizontal cutoff, vertical cutoff
	defaultLumaValues = [][]int{
		{100, 7, 7},
		{100, 8, 8},
		{100, 9, 9},
		{110, 10, 10},
		{120, 11, 11},
		{135, 12, 12},
		{145, 13, 13},
		{180, 14, 14},
	}
	defaultChromaGains = []int{128, 96, 64, 64, 64, 64, 96, 128}
)

// New returns a model holding the default parameters.
func New() *Model {
	m := &Model{}
	m.Reset()
	return m
}

// Reset restores the default partition of every component.
func (m *Model) Reset() {
	m.ModelID = 0
	m.Log2ScaleFactor = 5
	m.GlobalGain = DefaultGlobalGain

	luma := Component{Present: true, NumModelValues: 3}
	for k := range defaultLumaLower {
		luma.Intervals = append(luma.Intervals, Interval{
			Lower:   defaultLumaLower[k],
			Upper:   defaultLumaUpper[k],
			Values:  slices.Clone(defaultLumaValues[k]),
			Enabled: true,
		})
	}
	m.Comps[0] = luma

	for c := 1; c < NumComponents; c++ {
		chroma := Component{Present: true, NumModelValues: 1}
		for k := range defaultChromaLower {
			chroma.Intervals = append(chroma.Intervals, Interval{
				Lower:   defaultChromaLower[k],
				Upper:   defaultChromaUpper[k],
				Values:  []int{defaultChromaGains[k]},
				Enabled: true,
			})
		}
		m.Comps[c] = chroma
	}
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	out := *m
	for c := range m.Comps {
		out.Comps[c].Intervals = cloneIntervals(m.Comps[c].Intervals)
	}
	return &out
}

func cloneIntervals(in []Interval) []Interval {
	if in == nil {
		return nil
	}
	out := make([]Interval, len(in))
	for k, iv := range in {
		iv.Values = slices.Clone(iv.Values)
		out[k] = iv
	}
	return out
}

// Load replaces the model contents with src.
func (m *Model) Load(src *Model) {
	*m = *src.Clone()
}

func (m *Model) valid(c, k int) bool {
	if c < 0 || c >= NumComponents || !m.Comps[c].Present {
		return false
	}
	return k >= 0 && k < len(m.Comps[c].Intervals)
}

// Split divides interval k of component c at intensity i into [lower, i-1]
// and [i, upper]. Both halves keep the original values and enabled flag.
// It reports false and leaves the model untouched unless lower < i <= upper.
func (m *Model) Split(c, k, i int) bool {
	if !m.valid(c, k) {
		return false
	}
	comp := &m.Comps[c]
	iv := comp.Intervals[k]
	if i <= iv.Lower || i > iv.Upper {
		return false
	}

	left := iv
	left.Upper = i - 1
	left.Values = slices.Clone(iv.Values)
	right := iv
	right.Lower = i
	right.Values = slices.Clone(iv.Values)

	comp.Intervals[k] = left
	comp.Intervals = slices.Insert(comp.Intervals, k+1, right)
	return true
}

// SetEnabled sets the enabled flag of interval k of component c.
// Out-of-range arguments are a no-op reporting false.
func (m *Model) SetEnabled(c, k int, enabled bool) bool {
	if !m.valid(c, k) {
		return false
	}
	m.Comps[c].Intervals[k].Enabled = enabled
	return true
}

// IntervalAt returns the index of the interval of component c containing
// intensity v, or -1.
func (m *Model) IntervalAt(c, v int) int {
	if c < 0 || c >= NumComponents {
		return -1
	}
	for k, iv := range m.Comps[c].Intervals {
		if v >= iv.Lower && v <= iv.Upper {
			return k
		}
	}
	return -1
}

// Validate checks the structural invariants of every present component and
// returns all violations joined.
func (m *Model) Validate() error {
	var errs []error
	for c, comp := range m.Comps {
		if !comp.Present {
			continue
		}
		name := ComponentName(c)
		if comp.NumModelValues < 1 {
			errs = append(errs, fmt.Errorf("%s: numModelValues %d < 1", name, comp.NumModelValues))
		}
		for k, iv := range comp.Intervals {
			if iv.Lower < 0 || iv.Upper > MaxIntensity {
				errs = append(errs, fmt.Errorf("%s[%d]: bounds [%d,%d] outside [0,%d]", name, k, iv.Lower, iv.Upper, MaxIntensity))
			}
			if iv.Lower > iv.Upper {
				errs = append(errs, fmt.Errorf("%s[%d]: lower %d > upper %d", name, k, iv.Lower, iv.Upper))
			}
			if len(iv.Values) != comp.NumModelValues {
				errs = append(errs, fmt.Errorf("%s[%d]: %d values, want %d", name, k, len(iv.Values), comp.NumModelValues))
			}
			if k > 0 {
				prev := comp.Intervals[k-1]
				if prev.Upper+1 != iv.Lower {
					errs = append(errs, fmt.Errorf("%s[%d]: lower %d does not follow upper %d", name, k, iv.Lower, prev.Upper))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// CheckRanges reports parameter values the grain synthesizer rejects for
// input of the given bit depth. It is advisory and not applied on load.
func (m *Model) CheckRanges(bitDepth int) error {
	var errs []error
	if m.ModelID != 0 && m.ModelID != 1 {
		errs = append(errs, fmt.Errorf("modelId %d not in {0,1}", m.ModelID))
	}
	maxGain := 1<<bitDepth - 1
	for c, comp := range m.Comps {
		if !comp.Present {
			continue
		}
		name := ComponentName(c)
		if comp.NumModelValues < 1 || comp.NumModelValues > 6 {
			errs = append(errs, fmt.Errorf("%s: numModelValues %d not in [1,6]", name, comp.NumModelValues))
		}
		for k, iv := range comp.Intervals {
			for j, v := range iv.Values {
				switch {
				case j == 0 && v > maxGain:
					errs = append(errs, fmt.Errorf("%s[%d]: gain %d above %d", name, k, v, maxGain))
				case (j == 1 || j == 2) && m.ModelID == 0 && (v < 2 || v > 14):
					errs = append(errs, fmt.Errorf("%s[%d]: cutoff %d not in [2,14]", name, k, v))
				}
			}
		}
	}
	return errors.Join(errs...)
}
