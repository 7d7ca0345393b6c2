package colorspace

import "fmt"

// Range is a closed interval attached to one color component.
type Range struct {
	Min, Max float64
}

// UnitRange is [0,1].
var UnitRange = Range{Min: 0, Max: 1}

// orUnit treats the zero Range as [0,1] so parameter structs can leave
// ranges unset.
func (r Range) orUnit() Range {
	if r == (Range{}) {
		return UnitRange
	}
	return r
}

func (r Range) validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: range [%g,%g] has min > max", ErrDomain, r.Min, r.Max)
	}
	return nil
}

// Clamp restricts v to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Rescale maps v from the range onto [0,1]. A degenerate range yields 0.
func (r Range) Rescale(v float64) float64 {
	if r.Max == r.Min {
		return 0
	}
	return (v - r.Min) / (r.Max - r.Min)
}

// Scale maps t in [0,1] back into the range.
func (r Range) Scale(t float64) float64 {
	return r.Min + t*(r.Max-r.Min)
}

// IsUnitRange reports whether every range is exactly [0,1].
func IsUnitRange(ranges []Range) bool {
	for _, r := range ranges {
		if r.Min != 0 || r.Max != 1 {
			return false
		}
	}
	return true
}

// RescaleToUnit maps each input component onto [0,1] using its range.
// Components beyond len(ranges) are copied unchanged.
func RescaleToUnit(ranges []Range, in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if i < len(ranges) {
			out[i] = ranges[i].Rescale(v)
		} else {
			out[i] = v
		}
	}
	return out
}

func unitRanges(n int) []Range {
	out := make([]Range, n)
	for i := range out {
		out[i] = UnitRange
	}
	return out
}

func fillRanges(ranges []Range) error {
	for i := range ranges {
		ranges[i] = ranges[i].orUnit()
		if err := ranges[i].validate(); err != nil {
			return err
		}
	}
	return nil
}
