package quant8

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// fpix is the perceptual pixel representation: four linear-light floats
// (R, G, B, A) with alpha pre-applied to the color channels. All clustering
// and nearest-color distance computation happens in this space.
type fpix struct {
	R, G, B, A float32
}

// d2 returns the squared Euclidean distance between two fpix values. Every
// stage of the pipeline (median-cut variance, k-means assignment, nearest-
// color search, remap MSE) uses this and only this metric.
func d2(a, b fpix) float32 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	da := a.A - b.A
	return dr*dr + dg*dg + db*db + da*da
}

// GammaLUT is a 256-entry sRGB->linear table plus its inverse, built once
// for a given gamma exponent and read-only from then on. Passing gamma==0
// builds the piecewise sRGB curve (the "use default sRGB" case); any other
// value builds a plain power curve with that exponent.
type GammaLUT struct {
	gamma   float64
	forward [256]float32    // 8-bit sRGB -> linear
	inverse [4096]uint8     // linear (scaled 0..4095) -> 8-bit sRGB
}

// NewGammaLUT builds a GammaLUT for the given gamma. gamma == 0 means
// "standard sRGB".
func NewGammaLUT(gamma float64) *GammaLUT {
	lut := &GammaLUT{gamma: gamma}
	if gamma == 0 {
		lut.buildSRGB()
	} else {
		lut.buildPower(gamma)
	}
	return lut
}

// buildSRGB follows the piecewise sRGB transfer function (IEC 61966-2-1).
func (lut *GammaLUT) buildSRGB() {
	for i := 0; i < 256; i++ {
		f := float64(i) / 255.0
		if f > 0.04045 {
			lut.forward[i] = float32(math.Pow((f+0.055)/1.055, 2.4))
		} else {
			lut.forward[i] = float32(f / 12.92)
		}
	}
	for i := 0; i < 4096; i++ {
		f := float64(i) / 4095.0
		var v float64
		if f > 0.0031308 {
			v = 1.055*math.Pow(f, 1/2.4) - 0.055
		} else {
			v = f * 12.92
		}
		lut.inverse[i] = clampByteRound(v * 255)
	}
}

// buildPower builds a plain gamma power curve, used when the caller
// supplies an explicit exponent instead of "use sRGB".
func (lut *GammaLUT) buildPower(gamma float64) {
	inv := 1.0 / gamma
	for i := 0; i < 256; i++ {
		f := float64(i) / 255.0
		lut.forward[i] = float32(math.Pow(f, inv))
	}
	for i := 0; i < 4096; i++ {
		f := float64(i) / 4095.0
		lut.inverse[i] = clampByteRound(math.Pow(f, gamma) * 255)
	}
}

func clampByteRound(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// fromRGBA maps an 8-bit sRGB RGBA pixel through the LUT into the
// premultiplied linear fpix space.
func fromRGBA(lut *GammaLUT, c color.RGBA) fpix {
	a := float32(c.A) / 255
	return fpix{
		R: lut.forward[c.R] * a,
		G: lut.forward[c.G] * a,
		B: lut.forward[c.B] * a,
		A: a,
	}
}

// toRGBA is the inverse of fromRGBA: it un-premultiplies alpha (guarding
// against a near-zero alpha dividing up noise) and applies the inverse LUT.
func toRGBA(lut *GammaLUT, p fpix) color.RGBA {
	if p.A < 1.0/512 {
		return color.RGBA{A: byteFromUnit(p.A)}
	}
	r := p.R / p.A
	g := p.G / p.A
	b := p.B / p.A
	return color.RGBA{
		R: lut.inverse[clampUnitIndex(r)],
		G: lut.inverse[clampUnitIndex(g)],
		B: lut.inverse[clampUnitIndex(b)],
		A: byteFromUnit(p.A),
	}
}

func clampUnitIndex(v float32) int {
	i := int(v*4095 + 0.5)
	if i < 0 {
		return 0
	}
	if i > 4095 {
		return 4095
	}
	return i
}

// labDistance is a diagnostic cross-check, independent of the fpix metric
// the pipeline actually clusters in: it converts two sRGB colors to CIE
// L*a*b* and returns their perceptual distance there. Tests use it to
// confirm that d2-based nearest-color choices roughly track human
// perceptual distance; nothing in the quantization pipeline itself calls
// it.
func labDistance(a, b color.RGBA) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceLab(cb)
}

func byteFromUnit(v float32) uint8 {
	i := int(v*255 + 0.5)
	if i < 0 {
		return 0
	}
	if i > 255 {
		return 255
	}
	return uint8(i)
}
