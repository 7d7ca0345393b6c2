package colorspace

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/pdfcolor/cmm"
)

const (
	// synthGridSize is the default CLUT grid of a sampled profile.
	synthGridSize = 9
	// synthGraySize is the CLUT length of a sampled CIEBasedA profile.
	synthGraySize = 128
	// maxGridPoints is the widest CLUT axis an mAB tag can encode.
	maxGridPoints = 255
)

// synthWriter starts a v4 input profile with XYZ PCS. The white point is
// adapted to D50 so wtpt is D50; bkpt gets the same adaptation.
func synthWriter(cs CIESpace, colorSpace string) (*cmm.ProfileWriter, Matrix3, error) {
	w := cmm.NewProfileWriter("scnr", colorSpace, "XYZ ")
	if err := w.AddText("desc", cs.Name()+" equivalent"); err != nil {
		return nil, Matrix3{}, err
	}
	if err := w.AddText("cprt", "No copyright"); err != nil {
		return nil, Matrix3{}, err
	}
	cam := ChromaticAdaptation(cs.WhitePoint(), D50White)
	w.AddXYZ("wtpt", D50White)
	w.AddXYZ("bkpt", cam.Apply(cs.BlackPoint()))
	return w, cam, nil
}

func finishProfile(w *cmm.ProfileWriter, lut *cmm.LutAB) ([]byte, error) {
	if err := w.AddLutAB("A2B0", lut); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// curveFromCache turns a float cache into a 512-entry curve. It fails when a
// sample leaves [0,1], which a curve cannot express.
func curveFromCache(c *FloatCache) (*cmm.Curve, bool) {
	if c.Identity && c.Domain == UnitRange {
		return &cmm.Curve{Gamma: 1}, true
	}
	table := make([]uint16, CacheSize)
	for i, v := range c.Values {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return nil, false
		}
		table[i] = uint16(math.Round(v * 65535))
	}
	return &cmm.Curve{Table: table}, true
}

func curvesFromCaches(caches []*FloatCache) ([]*cmm.Curve, bool) {
	out := make([]*cmm.Curve, len(caches))
	for i, c := range caches {
		var ok bool
		if out[i], ok = curveFromCache(c); !ok {
			return nil, false
		}
	}
	return out, true
}

func identityCurves(n int) []*cmm.Curve {
	out := make([]*cmm.Curve, n)
	for i := range out {
		out[i] = &cmm.Curve{Gamma: 1}
	}
	return out
}

// pcsMatrix is the 3x4 matrix element for m, scaled into the normalized PCS
// encoding.
func pcsMatrix(m Matrix3) []float64 {
	return append(m.scale(1/cmm.XYZScale).RowMajor(), 0, 0, 0)
}

// inUnitCube reports whether m maps [0,1]^3 into [0,1]^3.
func inUnitCube(m Matrix3) bool {
	box := m.boundingBox([3]Range{UnitRange, UnitRange, UnitRange})
	for _, r := range box {
		if r.Min < 0 || r.Max > 1 {
			return false
		}
	}
	return true
}

// sampleXYZ fills an n-d CLUT by running every grid point through the
// native pipeline with the XYZ finish. Grid coordinates are unit inputs
// mapped onto ranges; the first dimension varies slowest. Sampling stops
// when ctx is done.
func sampleXYZ(ctx context.Context, cs CIESpace, xst *State, ranges []Range, grid []int, yOnly bool) ([]float64, error) {
	total := 1
	for _, g := range grid {
		total *= g
	}
	clut := make([]float64, 0, 3*total)
	idx := make([]int, len(grid))
	cc := make([]float64, len(grid))
	last := grid[len(grid)-1]
	for p := 0; p < total; p++ {
		if p%last == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rem := p
		for d := len(grid) - 1; d >= 0; d-- {
			idx[d] = rem % grid[d]
			rem /= grid[d]
		}
		for d := range cc {
			cc[d] = ranges[d].Scale(float64(idx[d]) / float64(grid[d]-1))
		}
		_, xyz, _, err := PSConcretize(ctx, cs, cc, xst)
		if err != nil {
			return nil, err
		}
		if yOnly {
			xyz[0], xyz[2] = xyz[1], xyz[1]
		}
		for _, v := range xyz {
			clut = append(clut, UnitRange.Clamp(v/cmm.XYZScale))
		}
	}
	return clut, nil
}

// mashedLut samples the whole space into a CLUT followed by the chromatic
// adaptation matrix.
func mashedLut(ctx context.Context, cs CIESpace, st *State, cam Matrix3, grid []int, yOnly bool) (*cmm.LutAB, error) {
	clut, err := sampleXYZ(ctx, cs, st.xyzState(), cs.Ranges(), grid, yOnly)
	if err != nil {
		return nil, err
	}
	m := cam
	if yOnly {
		// Every CLUT column holds Y; X and Z follow the white point.
		m = Matrix3{CV: D50White}
	}
	return &cmm.LutAB{
		InputChannels:  len(grid),
		OutputChannels: 3,
		ACurves:        identityCurves(len(grid)),
		GridPoints:     grid,
		CLUT:           clut,
		MCurves:        identityCurves(3),
		Matrix:         append(m.RowMajor(), 0, 0, 0),
		BCurves:        identityCurves(3),
	}, nil
}

func uniformGrid(n, size int) []int {
	g := make([]int, n)
	for i := range g {
		g[i] = size
	}
	return g
}

func (s *CIEA) synthesize(ctx context.Context, st *State) (*cmm.ICCProfile, error) {
	w, _, err := synthWriter(s, "GRAY")
	if err != nil {
		return nil, err
	}
	lut, ok := s.curveLut()
	if !ok {
		if lut, err = mashedLut(ctx, s, st, Matrix3{}, []int{synthGraySize}, true); err != nil {
			return nil, err
		}
	}
	data, err := finishProfile(w, lut)
	if err != nil {
		return nil, err
	}
	return cmm.NewICCProfile(data)
}

// curveLut expresses the A space as DecodeA, a two point CLUT holding
// MatrixA, DecodeLMN and the Y row of MatrixLMN spread over the D50 white.
func (s *CIEA) curveLut() (*cmm.LutAB, bool) {
	lmn := s.lmn()
	if !IsUnitRange(lmn.RangeLMN[:]) {
		return nil, false
	}
	for _, v := range s.matrixA {
		if v < 0 || v > 1 {
			return nil, false
		}
	}
	a, ok := curveFromCache(s.floats)
	if !ok {
		return nil, false
	}
	m, ok := curvesFromCaches(lmn.floats[:])
	if !ok {
		return nil, false
	}
	yRow := lmn.MatrixLMN.Row(1)
	var mat Matrix3
	for j, col := range []*[3]float64{&mat.CU, &mat.CV, &mat.CW} {
		for i := 0; i < 3; i++ {
			col[i] = D50White[i] * yRow[j]
		}
	}
	return &cmm.LutAB{
		InputChannels:  1,
		OutputChannels: 3,
		ACurves:        []*cmm.Curve{a},
		GridPoints:     []int{2},
		CLUT:           []float64{0, 0, 0, s.matrixA[0], s.matrixA[1], s.matrixA[2]},
		MCurves:        m,
		Matrix:         pcsMatrix(mat),
		BCurves:        identityCurves(3),
	}, true
}

func (s *CIEABC) synthesize(ctx context.Context, st *State) (*cmm.ICCProfile, error) {
	w, cam, err := synthWriter(s, "RGB ")
	if err != nil {
		return nil, err
	}
	lut, ok := s.mergedLut(cam)
	if !ok {
		lut, ok = s.cubeLut(cam)
	}
	if !ok {
		if lut, err = mashedLut(ctx, s, st, cam, uniformGrid(3, synthGridSize), false); err != nil {
			return nil, err
		}
	}
	data, err := finishProfile(w, lut)
	if err != nil {
		return nil, err
	}
	return cmm.NewICCProfile(data)
}

// mergedLut folds MatrixABC, MatrixLMN and the adaptation into one matrix.
// It needs unit input ranges and no LMN decoding.
func (s *CIEABC) mergedLut(cam Matrix3) (*cmm.LutAB, bool) {
	lmn := s.lmn()
	if lmn.hasProcs() || !IsUnitRange(s.abc.ranges[:]) {
		return nil, false
	}
	decode, ok := curvesFromCaches(s.abc.floats[:])
	if !ok {
		return nil, false
	}
	return &cmm.LutAB{
		InputChannels:  3,
		OutputChannels: 3,
		MCurves:        decode,
		Matrix:         pcsMatrix(cam.Mul(lmn.MatrixLMN).Mul(s.abc.matrix)),
		BCurves:        identityCurves(3),
	}, true
}

// cubeLut runs DecodeABC as curves, MatrixABC as a 2x2x2 CLUT and DecodeLMN
// as curves before the LMN matrix.
func (s *CIEABC) cubeLut(cam Matrix3) (*cmm.LutAB, bool) {
	lmn := s.lmn()
	if !IsUnitRange(s.abc.ranges[:]) || !IsUnitRange(lmn.RangeLMN[:]) || !inUnitCube(s.abc.matrix) {
		return nil, false
	}
	a, ok := curvesFromCaches(s.abc.floats[:])
	if !ok {
		return nil, false
	}
	m, ok := curvesFromCaches(lmn.floats[:])
	if !ok {
		return nil, false
	}
	clut := make([]float64, 0, 24)
	for p := 0; p < 8; p++ {
		corner := [3]float64{float64(p >> 2 & 1), float64(p >> 1 & 1), float64(p & 1)}
		out := s.abc.matrix.Apply(corner)
		clut = append(clut, out[:]...)
	}
	return &cmm.LutAB{
		InputChannels:  3,
		OutputChannels: 3,
		ACurves:        a,
		GridPoints:     []int{2, 2, 2},
		CLUT:           clut,
		MCurves:        m,
		Matrix:         pcsMatrix(cam.Mul(lmn.MatrixLMN)),
		BCurves:        identityCurves(3),
	}, true
}

// tableGrid is the default grid, widened to the space's own table up to
// the mAB limit.
func tableGrid(dims []int) []int {
	g := make([]int, len(dims))
	for i, d := range dims {
		g[i] = min(maxGridPoints, max(synthGridSize, d))
	}
	return g
}

func (s *CIEDEF) synthesize(ctx context.Context, st *State) (*cmm.ICCProfile, error) {
	w, cam, err := synthWriter(s, "RGB ")
	if err != nil {
		return nil, err
	}
	lut, err := mashedLut(ctx, s, st, cam, tableGrid(s.def.table.Dims), false)
	if err != nil {
		return nil, err
	}
	data, err := finishProfile(w, lut)
	if err != nil {
		return nil, err
	}
	return cmm.NewICCProfile(data)
}

func (s *CIEDEFG) synthesize(ctx context.Context, st *State) (*cmm.ICCProfile, error) {
	w, cam, err := synthWriter(s, "CMYK")
	if err != nil {
		return nil, err
	}
	lut, err := mashedLut(ctx, s, st, cam, tableGrid(s.defg.table.Dims), false)
	if err != nil {
		return nil, err
	}
	data, err := finishProfile(w, lut)
	if err != nil {
		return nil, err
	}
	return cmm.NewICCProfile(data)
}

// SynthesizeProfile returns the ICC profile bytes equivalent to cs.
func SynthesizeProfile(ctx context.Context, cs CIESpace, st *State) ([]byte, error) {
	icc, err := cs.EnsureICCEquivalent(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", cs.Name(), err)
	}
	return icc.Profile().Data(), nil
}
