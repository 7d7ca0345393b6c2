package colorspace

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// CachedValue is the fixed-point domain of the lookup caches: 52 integer
// bits and 12 fractional bits.
type CachedValue = fixed.Int52_12

// TableCoord addresses a color lookup table: integer cell index plus a
// 6-bit fraction for interpolation between cells.
type TableCoord = fixed.Int26_6

const cachedShift = 12

// Frac is a device-ready color component; Frac1 represents 1.0.
type Frac int16

const (
	Frac0 Frac = 0
	Frac1 Frac = 0x7ff8
)

// FloatToCached converts with round-to-nearest.
func FloatToCached(f float64) CachedValue {
	return CachedValue(math.Round(f * (1 << cachedShift)))
}

func CachedToFloat(v CachedValue) float64 {
	return float64(v) / (1 << cachedShift)
}

// cachedProduct2Int returns (v*factor) as an integer carrying fbits of
// fraction, truncated toward negative infinity.
func cachedProduct2Int(v, factor CachedValue, fbits int) int {
	return int((int64(v) * int64(factor)) >> (2*cachedShift - fbits))
}

// interpolateBetween returns v0 + (v1-v0)*frac(i) where i is an index
// carrying InterpolateBits of fraction.
func interpolateBetween(v0, v1 CachedValue, i int) CachedValue {
	f := int64(i & (1<<InterpolateBits - 1))
	return v0 + CachedValue((int64(v1-v0)*f)>>InterpolateBits)
}

// FloatToFrac converts a value in [0,1] with rounding; out of range values
// are clamped.
func FloatToFrac(f float64) Frac {
	switch {
	case f <= 0:
		return Frac0
	case f >= 1:
		return Frac1
	}
	return Frac(f*float64(Frac1) + 0.5)
}

func FracToFloat(fr Frac) float64 {
	return float64(fr) / float64(Frac1)
}

// UshortToFrac maps [0,65535] onto [0,Frac1] with shifts only.
func UshortToFrac(v uint16) Frac {
	return Frac(v>>1) - Frac(v>>13)
}

// FracToUshort is the inverse of UshortToFrac up to rounding.
func FracToUshort(fr Frac) uint16 {
	if fr <= 0 {
		return 0
	}
	if fr >= Frac1 {
		return 0xffff
	}
	return uint16((int(fr)*0xffff + int(Frac1)/2) / int(Frac1))
}

// ByteToFrac maps [0,255] onto [0,Frac1].
func ByteToFrac(b byte) Frac {
	return Frac((int(b)*int(Frac1) + 127) / 255)
}

func floatToTableCoord(v float64) TableCoord {
	return TableCoord(math.Round(v * 64))
}
