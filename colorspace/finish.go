package colorspace

// RenderingFinish turns a decoded LMN vector into device fracs. The XYZ
// result is only reported by XYZFinish.
type RenderingFinish interface {
	Finish(v Vector3, jc *JointCache) ([]Frac, [3]float64)
}

// CRDFinish renders through a color rendering dictionary.
type CRDFinish struct {
	CRD *CRD
}

func (f CRDFinish) Finish(v Vector3, jc *JointCache) ([]Frac, [3]float64) {
	crd := f.CRD
	if !jc.SkipDecodeLMN {
		v = jc.DecodeLMN.Lookup3(v)
	}
	if !jc.SkipPQR {
		v = jc.TransformPQR.Lookup3(v)
	}
	if !jc.SkipEncodeLMN {
		v = crd.encodeLMN.Lookup3(v)
	}

	in := [3]CachedValue{v.U, v.V, v.W}
	var abc [3]float64
	for i, c := range crd.encodeABC {
		abc[i] = CachedToFloat(c.Interpolate(c.IndexOf(in[i], InterpolateBits)))
	}

	rt := crd.RenderTable
	if rt == nil {
		return []Frac{FloatToFrac(abc[0]), FloatToFrac(abc[1]), FloatToFrac(abc[2])}, [3]float64{}
	}
	coords := make([]TableCoord, 3)
	for i := range coords {
		coords[i] = floatToTableCoord(abc[i] * float64(rt.Table.Dims[i]-1))
	}
	out := rt.Table.Interpolate(coords)
	for j, t := range crd.tcaches {
		out[j] = FloatToFrac(t.Eval(FracToFloat(out[j])))
	}
	return out, [3]float64{}
}

// XYZFinish stops after DecodeLMN/MatrixLMN and reports CIE XYZ. The fracs
// are the XYZ values clamped to [0,1].
type XYZFinish struct{}

func (XYZFinish) Finish(v Vector3, jc *JointCache) ([]Frac, [3]float64) {
	if !jc.SkipDecodeLMN {
		v = jc.DecodeLMN.Lookup3(v)
	}
	xyz := v.Floats()
	return []Frac{FloatToFrac(xyz[0]), FloatToFrac(xyz[1]), FloatToFrac(xyz[2])}, xyz
}
