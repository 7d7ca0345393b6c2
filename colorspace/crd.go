package colorspace

import (
	"fmt"
	"sync"
)

// PQRPoints are the source and destination white and black points handed
// to TransformPQR, both as XYZ and after MatrixPQR.
type PQRPoints struct {
	WhiteSrc, BlackSrc, WhiteDst, BlackDst [3]float64

	WhiteSrcPQR, BlackSrcPQR, WhiteDstPQR, BlackDstPQR [3]float64
}

// PQRProc transforms component i of a PQR value from the source to the
// destination viewing conditions.
type PQRProc func(i int, v float64, pts *PQRPoints) float64

// VonKries scales each PQR component by the ratio of the white points.
func VonKries(i int, v float64, pts *PQRPoints) float64 {
	if pts.WhiteSrcPQR[i] == 0 {
		return v
	}
	return v * pts.WhiteDstPQR[i] / pts.WhiteSrcPQR[i]
}

// RenderTable is the optional final lookup of a CRD. T, when present, holds
// one procedure per table output.
type RenderTable struct {
	Table *ColorLookupTable
	T     []Proc
}

// CRD is a color rendering dictionary: the device side of the native CIE
// pipeline. Zero ranges mean [0,1] and zero matrices the identity. A CRD
// must not be modified once handed to a State.
type CRD struct {
	WhitePoint   [3]float64
	BlackPoint   [3]float64
	MatrixPQR    Matrix3
	RangePQR     [3]Range
	TransformPQR PQRProc
	MatrixLMN    Matrix3
	EncodeLMN    [3]Proc
	RangeLMN     [3]Range
	MatrixABC    Matrix3
	EncodeABC    [3]Proc
	RangeABC     [3]Range
	RenderTable  *RenderTable

	once      sync.Once
	err       error
	matrixPQR Matrix3
	fromPQR   Matrix3
	rangePQR  [3]Range
	encodeLMN *VectorCache3
	encodeABC [3]*ScalarCache
	tcaches   []*FloatCache
	skipLMN   bool
}

// prepare validates the dictionary and samples its encode stages once.
func (c *CRD) prepare() error {
	c.once.Do(func() { c.err = c.build() })
	return c.err
}

func (c *CRD) build() error {
	w := c.WhitePoint
	if w[1] != 1 || w[0] <= 0 || w[2] <= 0 {
		return fmt.Errorf("%w: CRD white point %v", ErrDomain, w)
	}
	c.rangePQR = c.RangePQR
	if err := fillRanges(c.rangePQR[:]); err != nil {
		return fmt.Errorf("RangePQR: %w", err)
	}
	rangeLMN, rangeABC := c.RangeLMN, c.RangeABC
	if err := fillRanges(rangeLMN[:]); err != nil {
		return fmt.Errorf("RangeLMN: %w", err)
	}
	if err := fillRanges(rangeABC[:]); err != nil {
		return fmt.Errorf("RangeABC: %w", err)
	}
	c.matrixPQR = c.MatrixPQR.orIdentity()
	inv, ok := c.matrixPQR.Invert()
	if !ok {
		return fmt.Errorf("%w: MatrixPQR is singular", ErrDomain)
	}
	matrixLMN, matrixABC := c.MatrixLMN.orIdentity(), c.MatrixABC.orIdentity()
	c.fromPQR = matrixLMN.Mul(inv)

	domainLMN := c.fromPQR.boundingBox(c.rangePQR)
	var lmnProcs [3]Proc
	for i := range lmnProcs {
		enc, r := c.EncodeLMN[i], rangeLMN[i]
		lmnProcs[i] = func(v float64) float64 { return r.Clamp(enc.eval(v)) }
	}
	c.encodeLMN = NewVectorCache3(domainLMN, lmnProcs, matrixABC)
	c.skipLMN = allNil(c.EncodeLMN[:]) && matrixABC.IsIdentity()

	domainABC := matrixABC.boundingBox(rangeLMN)
	for i := range c.encodeABC {
		enc, r := c.EncodeABC[i], rangeABC[i]
		c.encodeABC[i] = NewScalarCache(domainABC[i], func(v float64) float64 {
			return r.Rescale(r.Clamp(enc.eval(v)))
		})
	}

	if rt := c.RenderTable; rt != nil {
		if rt.Table == nil || len(rt.Table.Dims) != 3 {
			return fmt.Errorf("%w: RenderTable must be 3-d", ErrDomain)
		}
		if len(rt.T) != 0 && len(rt.T) != rt.Table.M {
			return fmt.Errorf("%w: RenderTable has %d outputs and %d T procs", ErrDomain, rt.Table.M, len(rt.T))
		}
		c.tcaches = make([]*FloatCache, len(rt.T))
		for i, t := range rt.T {
			c.tcaches[i] = NewFloatCache(UnitRange, func(v float64) float64 {
				return UnitRange.Clamp(t.eval(v))
			})
		}
	}
	return nil
}

// pqrPoints pairs the space's white and black points with the CRD's.
func (c *CRD) pqrPoints(white, black [3]float64) *PQRPoints {
	return &PQRPoints{
		WhiteSrc:    white,
		BlackSrc:    black,
		WhiteDst:    c.WhitePoint,
		BlackDst:    c.BlackPoint,
		WhiteSrcPQR: c.matrixPQR.Apply(white),
		BlackSrcPQR: c.matrixPQR.Apply(black),
		WhiteDstPQR: c.matrixPQR.Apply(c.WhitePoint),
		BlackDstPQR: c.matrixPQR.Apply(c.BlackPoint),
	}
}

// NumOutputs is the number of device components the CRD produces.
func (c *CRD) NumOutputs() int {
	if c.RenderTable != nil && c.RenderTable.Table != nil {
		return c.RenderTable.Table.M
	}
	return 3
}
