package yuv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ReadError is returned when a frame cannot be read in full.
type ReadError struct {
	Path   string
	Frame  int
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("yuv: read %s frame %d at offset %d: %v", e.Path, e.Frame, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Reader reads frames of a raw file with a fixed layout.
type Reader struct {
	f      *os.File
	path   string
	layout Layout
}

// Open opens a raw file for reading with layout l.
func Open(path string, l Layout) (*Reader, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return &Reader{f: f, path: path, layout: l}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Layout returns the frame layout.
func (r *Reader) Layout() Layout {
	return r.layout
}

// Count returns the number of whole frames in the file.
func (r *Reader) Count() (int, error) {
	st, err := r.f.Stat()
	if err != nil {
		return 0, &ReadError{Path: r.path, Err: err}
	}
	return int(st.Size() / r.layout.FrameBytes()), nil
}

// Frame reads frame index. A file too short to hold it is an error wrapping
// io.ErrUnexpectedEOF.
func (r *Reader) Frame(index int) (*Frame, error) {
	off := r.layout.FrameOffset(index)
	if index < 0 {
		return nil, &ReadError{Path: r.path, Frame: index, Offset: off, Err: errors.New("negative frame index")}
	}
	buf := make([]byte, r.layout.FrameBytes())
	n, err := r.f.ReadAt(buf, off)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, n, len(buf))
		}
		return nil, &ReadError{Path: r.path, Frame: index, Offset: off, Err: err}
	}
	return Decode(buf, r.layout)
}

// ReadFrame reads one frame from the raw file at path.
func ReadFrame(path string, index int, l Layout) (*Frame, error) {
	r, err := Open(path, l)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Frame(index)
}

// FrameCount returns the number of whole frames in the raw file at path.
func FrameCount(path string, l Layout) (int, error) {
	r, err := Open(path, l)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return r.Count()
}

// Decode unpacks one frame from buf, which must hold exactly l.FrameBytes().
func Decode(buf []byte, l Layout) (*Frame, error) {
	if int64(len(buf)) != l.FrameBytes() {
		return nil, fmt.Errorf("yuv: decode: %d bytes, want %d", len(buf), l.FrameBytes())
	}
	fr := NewFrame(l)
	bps := l.BytesPerSample()
	off := 0
	for _, p := range []Plane{fr.Y, fr.U, fr.V} {
		for i := range p.Samples {
			if bps == 1 {
				p.Samples[i] = float64(buf[off])
			} else {
				p.Samples[i] = float64(binary.LittleEndian.Uint16(buf[off:]))
			}
			off += bps
		}
	}
	return fr, nil
}

// Encode packs fr into raw bytes, rounding and clamping samples to the bit
// depth of its layout.
func Encode(fr *Frame) []byte {
	l := fr.Layout
	bps := l.BytesPerSample()
	maxV := float64(int(1)<<l.BitDepth - 1)
	buf := make([]byte, 0, l.FrameBytes())
	for _, p := range []Plane{fr.Y, fr.U, fr.V} {
		for _, s := range p.Samples {
			v := uint16(math.Round(max(0, min(maxV, s))))
			if bps == 1 {
				buf = append(buf, byte(v))
			} else {
				buf = binary.LittleEndian.AppendUint16(buf, v)
			}
		}
	}
	return buf
}

// WriteFrame appends fr to w in raw form.
func WriteFrame(w io.Writer, fr *Frame) error {
	if _, err := w.Write(Encode(fr)); err != nil {
		return fmt.Errorf("yuv: write frame: %w", err)
	}
	return nil
}
