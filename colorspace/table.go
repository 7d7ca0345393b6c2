package colorspace

import "fmt"

// ColorLookupTable is an N-dimensional table of byte samples with M outputs
// per grid point. The first dimension varies slowest.
type ColorLookupTable struct {
	Dims []int
	M    int
	Data []byte
}

// NewColorLookupTable checks that data matches dims and m.
func NewColorLookupTable(dims []int, m int, data []byte) (*ColorLookupTable, error) {
	if len(dims) == 0 || len(dims) > 4 {
		return nil, fmt.Errorf("%w: table has %d dimensions", ErrDomain, len(dims))
	}
	if m < 1 {
		return nil, fmt.Errorf("%w: table has %d outputs", ErrDomain, m)
	}
	n := m
	for _, d := range dims {
		if d < 1 {
			return nil, fmt.Errorf("%w: table dimension %d", ErrDomain, d)
		}
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: table holds %d bytes, want %d", ErrDomain, len(data), n)
	}
	return &ColorLookupTable{Dims: append([]int(nil), dims...), M: m, Data: data}, nil
}

// Interpolate evaluates the table at fixed-point grid coordinates with
// N-linear interpolation and returns M fracs. Coordinates are clamped to
// [0, dim-1].
func (t *ColorLookupTable) Interpolate(coords []TableCoord) []Frac {
	n := len(t.Dims)
	var (
		base [4]int
		frac [4]float64
		step [4]int
	)
	stride := t.M
	for d := n - 1; d >= 0; d-- {
		step[d] = stride
		stride *= t.Dims[d]
	}
	for d := 0; d < n; d++ {
		c := coords[d]
		top := TableCoord((t.Dims[d] - 1) << 6)
		if c < 0 {
			c = 0
		}
		if c > top {
			c = top
		}
		base[d] = c.Floor()
		frac[d] = float64(c&63) / 64
	}

	acc := make([]float64, t.M)
	for corner := 0; corner < 1<<n; corner++ {
		w := 1.0
		off := 0
		for d := 0; d < n; d++ {
			idx := base[d]
			if corner&(1<<d) != 0 {
				w *= frac[d]
				if idx < t.Dims[d]-1 {
					idx++
				}
			} else {
				w *= 1 - frac[d]
			}
			off += idx * step[d]
		}
		if w == 0 {
			continue
		}
		for k := 0; k < t.M; k++ {
			acc[k] += w * float64(t.Data[off+k])
		}
	}
	out := make([]Frac, t.M)
	for k, v := range acc {
		out[k] = FloatToFrac(v / 255)
	}
	return out
}
