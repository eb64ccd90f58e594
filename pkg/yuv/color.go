package yuv

import "math"

// BT.709 limited range to R'G'B'.
const (
	crToR = 1.5748
	cbToG = 0.18732
	crToG = 0.46812
	cbToB = 1.8556
)

// ToRGB converts one limited range sample triplet of the given bit depth to
// R'G'B' in [0,1].
func ToRGB(y, u, v float64, bitDepth int) (r, g, b float64) {
	scale := math.Ldexp(1, bitDepth-8)
	yn := (y - 16*scale) / (219 * scale)
	un := (u - 128*scale) / (224 * scale)
	vn := (v - 128*scale) / (224 * scale)

	r = clip01(yn + crToR*vn)
	g = clip01(yn - cbToG*un - crToG*vn)
	b = clip01(yn + cbToB*un)
	return r, g, b
}

func clip01(x float64) float64 {
	return max(0, min(1, x))
}
