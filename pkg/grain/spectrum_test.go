package grain

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

func noisePlane(w, h int, seed uint64) yuv.Plane {
	rng := rand.New(rand.NewPCG(seed, 3))
	p := yuv.NewPlane(w, h)
	for i := range p.Samples {
		p.Samples[i] = rng.NormFloat64() * 4
	}
	return p
}

// boxRows low-passes every row with a running box filter of width n.
func boxRows(p yuv.Plane, n int) yuv.Plane {
	out := yuv.NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += p.At((x+k)%p.Width, y)
			}
			out.Set(x, y, sum/float64(n))
		}
	}
	return out
}

func sum(a [Bands]float64) float64 {
	var s float64
	for _, v := range a {
		s += v
	}
	return s
}

func TestAnalyzeWhiteNoise(t *testing.T) {
	s, err := Analyze(noisePlane(64, 64, 1))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, sum(s.Horizontal), 1e-9)
	assert.InDelta(t, 1.0, sum(s.Vertical), 1e-9)
	assert.GreaterOrEqual(t, s.CutoffH, 12)
	assert.GreaterOrEqual(t, s.CutoffV, 12)
	assert.InDelta(t, 4.0, s.RMS, 0.5)
}

func TestAnalyzeLowPassRows(t *testing.T) {
	s, err := Analyze(boxRows(noisePlane(64, 64, 2), 4))
	require.NoError(t, err)

	assert.LessOrEqual(t, s.CutoffH, 9)
	assert.GreaterOrEqual(t, s.CutoffV, 12)
	assert.Less(t, s.CutoffH, s.CutoffV)
}

func TestAnalyzeFlat(t *testing.T) {
	p := yuv.NewPlane(8, 8)
	for i := range p.Samples {
		p.Samples[i] = 3
	}
	s, err := Analyze(p)
	require.NoError(t, err)
	assert.Equal(t, 0, s.CutoffH)
	assert.Equal(t, 0, s.CutoffV)
	assert.Zero(t, sum(s.Horizontal))
}

func TestAnalyzeTooSmall(t *testing.T) {
	_, err := Analyze(yuv.NewPlane(2, 8))
	assert.Error(t, err)
}

func TestAnalyzeFrames(t *testing.T) {
	l := yuv.Layout{Width: 16, Height: 16, BitDepth: 10, Format: yuv.Format420}
	clean := yuv.NewFrame(l)
	for i := range clean.Y.Samples {
		clean.Y.Samples[i] = 400
	}

	out := l
	out.BitDepth = 8
	grainy := yuv.NewFrame(out)
	noise := noisePlane(16, 16, 5)
	for i := range grainy.Y.Samples {
		grainy.Y.Samples[i] = 100 + noise.Samples[i]
	}

	s, err := AnalyzeFrames(clean, grainy)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(s.Horizontal), 1e-9)
	assert.Greater(t, s.RMS, 0.0)

	small := yuv.NewFrame(yuv.Layout{Width: 8, Height: 8, BitDepth: 8, Format: yuv.Format420})
	_, err = AnalyzeFrames(clean, small)
	assert.True(t, errors.Is(err, ErrPlaneMismatch))
}

func TestAnalyzeFramesScalesBitDepth(t *testing.T) {
	l := yuv.Layout{Width: 8, Height: 8, BitDepth: 10, Format: yuv.Format420}
	clean := yuv.NewFrame(l)
	for i := range clean.Y.Samples {
		clean.Y.Samples[i] = 400
	}
	out := l
	out.BitDepth = 8
	grainy := yuv.NewFrame(out)
	for i := range grainy.Y.Samples {
		grainy.Y.Samples[i] = 100
	}

	s, err := AnalyzeFrames(clean, grainy)
	require.NoError(t, err)
	assert.Zero(t, s.RMS)

	grainy.Y.Samples[0] = 108
	s, err = AnalyzeFrames(clean, grainy)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.RMS, 1e-9)
}
