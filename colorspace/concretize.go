package colorspace

import (
	"context"
	"fmt"
)

// Status reports whether the native pipeline produced a color.
type Status int

const (
	StatusDone Status = iota
	// StatusNoop means no rendering is defined; the result is black.
	StatusNoop
)

// PSConcretize runs cc through the native CIE pipeline of cs under the
// rendering set up in st. With neither a CRD nor a CIE to XYZ request it
// returns black and StatusNoop. The XYZ result is filled in only when st
// renders to XYZ.
func PSConcretize(ctx context.Context, cs CIESpace, cc []float64, st *State) ([]Frac, [3]float64, Status, error) {
	if n := cs.NumComponents(); len(cc) < n {
		return nil, [3]float64{}, StatusDone, fmt.Errorf("%w: %s needs %d components, got %d",
			ErrDomain, cs.Name(), n, len(cc))
	}
	jc, status, err := st.CheckRendering(ctx, cs)
	if err != nil {
		return nil, [3]float64{}, StatusDone, err
	}
	if status == StatusNoop {
		return []Frac{Frac0, Frac0, Frac0}, [3]float64{}, StatusNoop, nil
	}
	fr, xyz := jc.Finish.Finish(cs.decodeToLMN(cc, jc), jc)
	return fr, xyz, StatusDone, nil
}

// ConcretizeCIE is PSConcretize without the XYZ result.
func ConcretizeCIE(ctx context.Context, cs CIESpace, cc []float64, st *State) ([]Frac, Status, error) {
	fr, _, status, err := PSConcretize(ctx, cs, cc, st)
	return fr, status, err
}

func (s *CIEA) decodeToLMN(cc []float64, jc *JointCache) Vector3 {
	a := FloatToCached(cc[0])
	if jc.SkipDecodeABC {
		return Vector3{U: a, V: a, W: a}
	}
	return s.cache.Entry(a)
}

func (s *CIEABC) decodeToLMN(cc []float64, jc *JointCache) Vector3 {
	v := vectorFromFloats([3]float64{cc[0], cc[1], cc[2]})
	if jc.SkipDecodeABC {
		return v
	}
	return s.abc.cache.Lookup3(v)
}

func (s *CIEDEF) decodeToLMN(cc []float64, jc *JointCache) Vector3 {
	v := s.abc.scale(s.def.lookup(cc))
	if jc.SkipDecodeABC {
		return v
	}
	return s.abc.cache.Lookup3(v)
}

func (s *CIEDEFG) decodeToLMN(cc []float64, jc *JointCache) Vector3 {
	v := s.abc.scale(s.defg.lookup(cc))
	if jc.SkipDecodeABC {
		return v
	}
	return s.abc.cache.Lookup3(v)
}
