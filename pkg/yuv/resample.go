package yuv

import (
	"fmt"
	"math"
	"slices"
)

// sinc is the normalized sinc sin(pi x)/(pi x).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func normalize(k []float64) []float64 {
	sum := 0.0
	for _, v := range k {
		sum += v
	}
	out := make([]float64, len(k))
	for i, v := range k {
		out[i] = v / sum
	}
	return out
}

var (
	// interpolates halfway between sample n and n+1
	cositedKernel = normalize([]float64{0, sinc(-1.5), sinc(-0.5), sinc(0.5), sinc(1.5)})
	// chroma rows sit halfway between luma rows: a quarter sample before
	// and after each chroma row
	midpointKernel        = normalize([]float64{sinc(-1.75), sinc(-0.75), sinc(0.25), sinc(1.25), 0})
	midpointKernelReverse = reversed(midpointKernel)
)

func reversed(k []float64) []float64 {
	out := slices.Clone(k)
	slices.Reverse(out)
	return out
}

// correlate filters src with an odd-length kernel centered on its middle tap,
// repeating the edge samples past the ends. in(i) returns sample i of src.
func correlate(n int, in func(i int) float64, kernel []float64, out func(i int, v float64)) {
	c := len(kernel) / 2
	for i := 0; i < n; i++ {
		acc := 0.0
		for j, w := range kernel {
			if w == 0 {
				continue
			}
			acc += w * in(max(0, min(n-1, i+j-c)))
		}
		out(i, acc)
	}
}

// UpsampleHorizontal doubles the width of p. Even output columns keep the
// input samples, odd columns are interpolated.
func UpsampleHorizontal(p Plane) Plane {
	out := NewPlane(2*p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		row := p.Samples[y*p.Width : (y+1)*p.Width]
		for x, v := range row {
			out.Set(2*x, y, v)
		}
		correlate(p.Width, func(i int) float64 { return row[i] }, cositedKernel,
			func(i int, v float64) { out.Set(2*i+1, y, v) })
	}
	return out
}

// UpsampleVertical doubles the height of p for chroma sited midway between
// luma rows. Both output row sets are interpolated.
func UpsampleVertical(p Plane) Plane {
	out := NewPlane(p.Width, 2*p.Height)
	for x := 0; x < p.Width; x++ {
		col := func(i int) float64 { return p.At(x, i) }
		correlate(p.Height, col, midpointKernel, func(i int, v float64) { out.Set(x, 2*i, v) })
		correlate(p.Height, col, midpointKernelReverse, func(i int, v float64) { out.Set(x, 2*i+1, v) })
	}
	return out
}

// UpsampleChroma brings a chroma plane to the luma size w x h.
func UpsampleChroma(p Plane, w, h int) (Plane, error) {
	if p.Width*2 == w {
		p = UpsampleHorizontal(p)
	}
	if p.Height*2 == h {
		p = UpsampleVertical(p)
	}
	if p.Width != w || p.Height != h {
		return Plane{}, fmt.Errorf("yuv: cannot resample %dx%d chroma to %dx%d", p.Width, p.Height, w, h)
	}
	return p, nil
}
