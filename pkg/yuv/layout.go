// Package yuv reads raw planar YUV frames and turns them into displayable
// images.
package yuv

import (
	"errors"
	"fmt"
	"strconv"
)

// ChromaFormat is the chroma subsampling of a raw file.
type ChromaFormat int

const (
	Format400 ChromaFormat = 400
	Format420 ChromaFormat = 420
	Format422 ChromaFormat = 422
	Format444 ChromaFormat = 444
)

// ParseChromaFormat parses "400", "420", "422" or "444".
func ParseChromaFormat(s string) (ChromaFormat, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("chroma format %q: %w", s, err)
	}
	f := ChromaFormat(v)
	if !f.Valid() {
		return 0, fmt.Errorf("chroma format %q not supported", s)
	}
	return f, nil
}

// Valid reports whether f is a supported format.
func (f ChromaFormat) Valid() bool {
	switch f {
	case Format400, Format420, Format422, Format444:
		return true
	}
	return false
}

func (f ChromaFormat) String() string {
	return strconv.Itoa(int(f))
}

// ChromaSize returns the chroma plane size for a luma plane of w x h.
func (f ChromaFormat) ChromaSize(w, h int) (int, int) {
	switch f {
	case Format400:
		return 0, 0
	case Format420:
		return w / 2, h / 2
	case Format422:
		return w / 2, h
	default:
		return w, h
	}
}

// Layout describes the frames of a raw file. Raw files carry no header,
// so the layout always comes from the caller.
type Layout struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	BitDepth int          `json:"bitDepth"`
	Format   ChromaFormat `json:"format"`
}

// Validate checks that l describes a readable file.
func (l Layout) Validate() error {
	var errs []error
	if l.Width < 1 || l.Height < 1 {
		errs = append(errs, fmt.Errorf("size %dx%d", l.Width, l.Height))
	}
	if l.BitDepth < 8 || l.BitDepth > 16 {
		errs = append(errs, fmt.Errorf("bit depth %d not in [8,16]", l.BitDepth))
	}
	if !l.Format.Valid() {
		errs = append(errs, fmt.Errorf("chroma format %d", int(l.Format)))
	}
	if (l.Format == Format420 || l.Format == Format422) && l.Width%2 != 0 {
		errs = append(errs, fmt.Errorf("odd width %d with %s chroma", l.Width, l.Format))
	}
	if l.Format == Format420 && l.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("odd height %d with %s chroma", l.Height, l.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("yuv layout: %w", err)
	}
	return nil
}

// BytesPerSample is 1 up to 8 bits and 2 (little endian) above.
func (l Layout) BytesPerSample() int {
	if l.BitDepth > 8 {
		return 2
	}
	return 1
}

// ChromaSize returns the size of one chroma plane.
func (l Layout) ChromaSize() (int, int) {
	return l.Format.ChromaSize(l.Width, l.Height)
}

// FrameSamples is the number of samples in one frame, all planes.
func (l Layout) FrameSamples() int {
	cw, ch := l.ChromaSize()
	return l.Width*l.Height + 2*cw*ch
}

// FrameBytes is the size of one frame in bytes.
func (l Layout) FrameBytes() int64 {
	return int64(l.FrameSamples()) * int64(l.BytesPerSample())
}

// FrameOffset is the byte offset of frame f.
func (l Layout) FrameOffset(f int) int64 {
	return int64(f) * l.FrameBytes()
}

// Plane is one 2D sample array, row-major.
type Plane struct {
	Width   int
	Height  int
	Samples []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(w, h int) Plane {
	return Plane{Width: w, Height: h, Samples: make([]float64, w*h)}
}

// At returns the sample at (x, y).
func (p Plane) At(x, y int) float64 {
	return p.Samples[y*p.Width+x]
}

// Set stores the sample at (x, y).
func (p Plane) Set(x, y int, v float64) {
	p.Samples[y*p.Width+x] = v
}

// Frame is one decoded frame. U and V are empty for 4:0:0.
type Frame struct {
	Layout Layout
	Y      Plane
	U      Plane
	V      Plane
}

// NewFrame allocates a zeroed frame.
func NewFrame(l Layout) *Frame {
	cw, ch := l.ChromaSize()
	return &Frame{
		Layout: l,
		Y:      NewPlane(l.Width, l.Height),
		U:      NewPlane(cw, ch),
		V:      NewPlane(cw, ch),
	}
}
