// Package grain estimates the frequency content of synthesized film grain.
package grain

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// Bands is the number of frequency bands between DC and Nyquist, matching
// the resolution of the cutoff frequency parameters.
const Bands = 16

// Cutoff limits of the frequency filtering model.
const (
	MinCutoff = 2
	MaxCutoff = 14
)

// energyShare is the fraction of grain power below the estimated cutoff.
const energyShare = 0.9

// ErrPlaneMismatch is returned when the clean and grainy planes differ in size.
var ErrPlaneMismatch = errors.New("grain: plane size mismatch")

// Spectrum is the band power of a grain residual along each axis. Each
// array sums to 1 unless the residual is empty.
type Spectrum struct {
	Horizontal [Bands]float64 `json:"horizontal"`
	Vertical   [Bands]float64 `json:"vertical"`
	// CutoffH and CutoffV are estimates comparable to the model's cutoff
	// values, or 0 when the residual carries no grain.
	CutoffH int `json:"cutoffH"`
	CutoffV int `json:"cutoffV"`
	// RMS is the residual strength in 8-bit code values.
	RMS float64 `json:"rms"`
}

// AnalyzeFrames compares the luma of a clean frame with its grainy
// counterpart. Both planes are brought to 8-bit scale first.
func AnalyzeFrames(clean, grainy *yuv.Frame) (Spectrum, error) {
	if clean.Y.Width != grainy.Y.Width || clean.Y.Height != grainy.Y.Height {
		return Spectrum{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrPlaneMismatch,
			clean.Y.Width, clean.Y.Height, grainy.Y.Width, grainy.Y.Height)
	}
	cs := math.Ldexp(1, 8-clean.Layout.BitDepth)
	gs := math.Ldexp(1, 8-grainy.Layout.BitDepth)

	res := yuv.NewPlane(clean.Y.Width, clean.Y.Height)
	for i := range res.Samples {
		res.Samples[i] = grainy.Y.Samples[i]*gs - clean.Y.Samples[i]*cs
	}
	return Analyze(res)
}

// Analyze computes the spectrum of a residual plane.
func Analyze(res yuv.Plane) (Spectrum, error) {
	if res.Width < 4 || res.Height < 4 {
		return Spectrum{}, fmt.Errorf("grain: residual %dx%d too small", res.Width, res.Height)
	}

	var s Spectrum
	var sq float64
	for _, v := range res.Samples {
		sq += v * v
	}
	s.RMS = math.Sqrt(sq / float64(len(res.Samples)))

	row := make([]float64, res.Width)
	var hp [Bands]float64
	for y := 0; y < res.Height; y++ {
		copy(row, res.Samples[y*res.Width:(y+1)*res.Width])
		accumulate(&hp, row)
	}

	col := make([]float64, res.Height)
	var vp [Bands]float64
	for x := 0; x < res.Width; x++ {
		for y := range col {
			col[y] = res.At(x, y)
		}
		accumulate(&vp, col)
	}

	s.Horizontal, s.CutoffH = normalize(hp)
	s.Vertical, s.CutoffV = normalize(vp)
	return s, nil
}

// accumulate adds the power spectrum of the zero-mean signal to bands.
// The signal is modified.
func accumulate(bands *[Bands]float64, signal []float64) {
	var mean float64
	for _, v := range signal {
		mean += v
	}
	mean /= float64(len(signal))
	for i := range signal {
		signal[i] -= mean
	}

	coeffs := fft.FFTReal(signal)
	bins := len(signal)/2 + 1
	for k := 0; k < bins; k++ {
		re, im := real(coeffs[k]), imag(coeffs[k])
		bands[k*Bands/bins] += re*re + im*im
	}
}

func normalize(p [Bands]float64) ([Bands]float64, int) {
	var total float64
	for _, v := range p {
		total += v
	}
	if total == 0 {
		return [Bands]float64{}, 0
	}

	var out [Bands]float64
	cutoff := -1
	var cum float64
	for i, v := range p {
		out[i] = v / total
		cum += out[i]
		if cutoff < 0 && cum >= energyShare {
			cutoff = i
		}
	}
	if cutoff < 0 {
		cutoff = Bands - 1
	}
	return out, max(MinCutoff, min(MaxCutoff, cutoff))
}
