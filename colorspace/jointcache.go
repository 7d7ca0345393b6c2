package colorspace

import "fmt"

// JointStatus tracks how far a JointCache has been built.
type JointStatus int

const (
	JointNotBuilt JointStatus = iota
	// JointBuilt means the rendering side is known but the cache is not
	// bound to a color space.
	JointBuilt
	JointCompleted
)

func (s JointStatus) String() string {
	switch s {
	case JointBuilt:
		return "built"
	case JointCompleted:
		return "completed"
	}
	return "not built"
}

// JointCache joins one CIE space to the rendering side: the space's
// DecodeLMN folded into MatrixPQR, the CRD's TransformPQR folded into its
// MatrixLMN, and the finish that produces device fracs. A completed cache
// is never modified; State replaces it instead.
type JointCache struct {
	Status       JointStatus
	ColorSpaceID uint64

	SkipDecodeABC bool
	SkipDecodeLMN bool
	SkipPQR       bool
	SkipEncodeLMN bool

	DecodeLMN    *VectorCache3
	TransformPQR *VectorCache3
	Finish       RenderingFinish
}

// completeJointCache binds cs to crd. A nil crd builds the CIE to XYZ
// variant, whose finish stops after DecodeLMN.
func completeJointCache(cs CIESpace, crd *CRD) (*JointCache, error) {
	lmn := cs.lmn()
	jc := &JointCache{
		ColorSpaceID:  cs.ID(),
		SkipDecodeABC: cs.skipDecode(),
	}
	if crd == nil {
		jc.DecodeLMN = NewVectorCache3(lmn.RangeLMN, lmn.DecodeLMN, lmn.MatrixLMN)
		jc.SkipDecodeLMN = !lmn.hasProcs() && lmn.MatrixLMN.IsIdentity()
		jc.SkipPQR, jc.SkipEncodeLMN = true, true
		jc.Finish = XYZFinish{}
		jc.Status = JointCompleted
		return jc, nil
	}
	if err := crd.prepare(); err != nil {
		return nil, fmt.Errorf("complete joint cache: %w", err)
	}

	toPQR := crd.matrixPQR.Mul(lmn.MatrixLMN)
	jc.DecodeLMN = NewVectorCache3(lmn.RangeLMN, lmn.DecodeLMN, toPQR)
	jc.SkipDecodeLMN = !lmn.hasProcs() && toPQR.IsIdentity()

	var procs [3]Proc
	if tpqr := crd.TransformPQR; tpqr != nil {
		pts := crd.pqrPoints(lmn.WhitePoint, lmn.BlackPoint)
		for i := range procs {
			procs[i] = func(v float64) float64 { return tpqr(i, v, pts) }
		}
	}
	jc.TransformPQR = NewVectorCache3(crd.rangePQR, procs, crd.fromPQR)
	jc.SkipPQR = crd.TransformPQR == nil && crd.fromPQR.nearIdentity()
	jc.SkipEncodeLMN = crd.skipLMN
	jc.Finish = CRDFinish{CRD: crd}
	jc.Status = JointCompleted
	return jc, nil
}
