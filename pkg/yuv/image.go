package yuv

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"
)

// ToImage resamples the chroma of fr to full resolution and converts it to
// an 8-bit RGBA image. 4:0:0 frames render as gray.
func ToImage(fr *Frame) (*image.RGBA, error) {
	l := fr.Layout
	u, v := fr.U, fr.V
	if l.Format == Format400 {
		mid := 128 * math.Ldexp(1, l.BitDepth-8)
		u, v = constPlane(l.Width, l.Height, mid), constPlane(l.Width, l.Height, mid)
	} else {
		var err error
		if u, err = UpsampleChroma(fr.U, l.Width, l.Height); err != nil {
			return nil, err
		}
		if v, err = UpsampleChroma(fr.V, l.Width, l.Height); err != nil {
			return nil, err
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	for i, ys := range fr.Y.Samples {
		r, g, b := ToRGB(ys, u.Samples[i], v.Samples[i], l.BitDepth)
		img.Pix[4*i+0] = to8(r)
		img.Pix[4*i+1] = to8(g)
		img.Pix[4*i+2] = to8(b)
		img.Pix[4*i+3] = 0xff
	}
	return img, nil
}

func constPlane(w, h int, v float64) Plane {
	p := NewPlane(w, h)
	for i := range p.Samples {
		p.Samples[i] = v
	}
	return p
}

func to8(x float64) uint8 {
	return uint8(math.Round(x * 255))
}

// Scale resizes img to width w keeping its aspect ratio. Images already at
// most w wide are returned as is.
func Scale(img image.Image, w int) image.Image {
	b := img.Bounds()
	if w <= 0 || w >= b.Dx() {
		return img
	}
	h := max(1, b.Dy()*w/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Encoding is an output image format.
type Encoding string

const (
	EncodingPNG  Encoding = "png"
	EncodingWebP Encoding = "webp"
)

// ContentType returns the MIME type of e.
func (e Encoding) ContentType() string {
	if e == EncodingWebP {
		return "image/webp"
	}
	return "image/png"
}

// EncodeImage writes img to w in format e.
func EncodeImage(w io.Writer, img image.Image, e Encoding) error {
	var err error
	switch e {
	case EncodingPNG:
		err = png.Encode(w, img)
	case EncodingWebP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("yuv: unknown image encoding %q", e)
	}
	if err != nil {
		return fmt.Errorf("yuv: encode %s: %w", e, err)
	}
	return nil
}
