package editor

import "math"

// Data ranges of the plot axes.
const (
	IntensityRange = 256
	GainRange      = 255
	FreqRange      = 15
)

// Axes maps between pixel coordinates (y growing downward) and the two
// value axes of the plot. Intensity and gain share the primary axis; the
// frequency axis is a twin sharing x.
type Axes struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultAxes is the plot area used when a client does not report one.
var DefaultAxes = Axes{Left: 64, Top: 24, Width: 512, Height: 340}

// Contains reports whether the pixel lies inside the plot area.
func (a Axes) Contains(x, y float64) bool {
	return x >= a.Left && x <= a.Left+a.Width && y >= a.Top && y <= a.Top+a.Height
}

// X returns the pixel column of intensity i.
func (a Axes) X(i float64) float64 {
	return a.Left + i/IntensityRange*a.Width
}

// GainY returns the pixel row of gain g.
func (a Axes) GainY(g float64) float64 {
	return a.Top + a.Height - g/GainRange*a.Height
}

// FreqY returns the pixel row of frequency f.
func (a Axes) FreqY(f float64) float64 {
	return a.Top + a.Height - f/FreqRange*a.Height
}

// Intensity returns the intensity at pixel column x.
func (a Axes) Intensity(x float64) float64 {
	return (x - a.Left) / a.Width * IntensityRange
}

// Gain returns the gain at pixel row y.
func (a Axes) Gain(y float64) float64 {
	return (a.Top + a.Height - y) / a.Height * GainRange
}

// Freq returns the frequency at pixel row y.
func (a Axes) Freq(y float64) float64 {
	return (a.Top + a.Height - y) / a.Height * FreqRange
}

// values converts a pixel position into rounded intensity, gain and
// frequency. Halves round to even.
func (a Axes) values(x, y float64) (i, g, f int) {
	return int(math.RoundToEven(a.Intensity(x))),
		int(math.RoundToEven(a.Gain(y))),
		int(math.RoundToEven(a.Freq(y)))
}

// distance from p to the segment p0-p1, in pixels.
func distance(px, py, x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = ((px-x0)*dx + (py-y0)*dy) / l2
		t = max(0, min(1, t))
	}
	return math.Hypot(px-(x0+t*dx), py-(y0+t*dy))
}
