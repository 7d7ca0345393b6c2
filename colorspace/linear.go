package colorspace

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

// IsLinear samples the link at the midpoints of the region spanned by
// corners and compares the results with linear interpolation of the
// corner results. Two corners form a line, three a triangle and four two
// triangles sharing an edge. A halftoning device is never linear; an
// identity link always is.
func (s *ICCSpace) IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	if dev.MustHalftone() {
		return false, nil
	}
	link, _, err := st.link(ctx, s.profile, dev)
	if err != nil {
		return false, err
	}
	if link.IsIdentity() {
		return true, nil
	}
	if !dev.ColorInfo().SeparableAndLinear {
		return false, fmt.Errorf("%w: device is not separable and linear", ErrDomain)
	}
	for _, c := range corners {
		if len(c) < s.n {
			return false, fmt.Errorf("%w: corner has %d components, want %d", ErrDomain, len(c), s.n)
		}
	}

	p := &linearityProbe{link: link, maxDiff: linearTolerance(smoothness)}
	src := make([][]uint16, len(corners))
	des := make([][]uint16, len(corners))
	for i, c := range corners {
		src[i] = s.encode(c, false)
		if des[i], err = p.apply(src[i]); err != nil {
			return false, err
		}
	}
	switch len(corners) {
	case 2:
		return p.line(src[0], src[1], des[0], des[1])
	case 3:
		return p.triangle(src, des)
	case 4:
		ok, err := p.triangle(src[:3], des[:3])
		if !ok || err != nil {
			return ok, err
		}
		return p.triangle(src[1:], des[1:])
	}
	return false, fmt.Errorf("%w: linearity needs 2 to 4 corners, got %d", ErrDomain, len(corners))
}

// linearTolerance converts smoothness, a fraction of full scale, into a
// 16-bit difference in [1, 65535]. NaN counts as zero.
func linearTolerance(smoothness float64) int {
	if !(smoothness > 0) {
		return 1
	}
	return max(1, int(math.Round(65535*min(smoothness, 1))))
}

type linearityProbe struct {
	link    cmm.Link
	maxDiff int
}

func (p *linearityProbe) apply(src []uint16) ([]uint16, error) {
	out := make([]uint16, max(p.link.NumOutputs(), len(src)))
	if err := p.link.Apply16(src, out); err != nil {
		return nil, fmt.Errorf("apply link: %w", err)
	}
	return out[:p.link.NumOutputs()], nil
}

func midpoint(a, b []uint16) []uint16 {
	out := make([]uint16, len(a))
	for i := range out {
		out[i] = uint16((uint32(a[i]) + uint32(b[i])) >> 1)
	}
	return out
}

// near reports whether the sampled result stays within maxDiff of the
// interpolated one in every component.
func (p *linearityProbe) near(sampled, interp []uint16) bool {
	for i := range sampled {
		d := int(sampled[i]) - int(interp[i])
		if d < 0 {
			d = -d
		}
		if d > p.maxDiff {
			return false
		}
	}
	return true
}

func (p *linearityProbe) line(src0, src1, des0, des1 []uint16) (bool, error) {
	des, err := p.apply(midpoint(src0, src1))
	if err != nil {
		return false, err
	}
	return p.near(des, midpoint(des0, des1)), nil
}

func (p *linearityProbe) triangle(src, des [][]uint16) (bool, error) {
	for _, e := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		ok, err := p.line(src[e[0]], src[e[1]], des[e[0]], des[e[1]])
		if !ok || err != nil {
			return ok, err
		}
	}
	src012 := midpoint(midpoint(src[1], src[2]), src[0])
	got, err := p.apply(src012)
	if err != nil {
		return false, err
	}
	return p.near(got, midpoint(des[0], midpoint(des[1], des[2]))), nil
}
