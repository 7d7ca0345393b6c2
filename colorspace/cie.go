package colorspace

import (
	"context"
	"fmt"

	"github.com/wudi/pdfcolor/cmm"
	"github.com/wudi/pdfcolor/device"
)

// D50White is the D50 white point, the usual WhitePoint of CIE spaces.
var D50White = [3]float64{cmm.D50X, cmm.D50Y, cmm.D50Z}

// Common holds the LMN stage and the white and black points every CIE space
// carries. Zero ranges mean [0,1] and a zero matrix means the identity.
type Common struct {
	RangeLMN   [3]Range
	DecodeLMN  [3]Proc
	MatrixLMN  Matrix3
	WhitePoint [3]float64
	BlackPoint [3]float64
}

// ABC holds the DecodeABC/MatrixABC stage shared by ABC, DEF and DEFG.
type ABC struct {
	RangeABC  [3]Range
	DecodeABC [3]Proc
	MatrixABC Matrix3
}

// CIESpace is implemented by the four CIE-based spaces.
type CIESpace interface {
	Space
	// EnsureICCEquivalent returns the ICC space synthesized from this space,
	// building it on first use.
	EnsureICCEquivalent(ctx context.Context, st *State) (*ICCSpace, error)
	Alternate() Space
	WhitePoint() [3]float64
	BlackPoint() [3]float64

	lmn() *lmnStage
	skipDecode() bool
	decodeToLMN(cc []float64, jc *JointCache) Vector3
	synthesize(ctx context.Context, st *State) (*cmm.ICCProfile, error)
	defaultMatch() cmm.DefaultMatch
	dataSpace() cmm.DataColorSpace
	cell() *iccCell
}

type lmnStage struct {
	Common
	floats [3]*FloatCache
}

func newLMNStage(c Common) (lmnStage, error) {
	if err := fillRanges(c.RangeLMN[:]); err != nil {
		return lmnStage{}, fmt.Errorf("RangeLMN: %w", err)
	}
	c.MatrixLMN = c.MatrixLMN.orIdentity()
	w := c.WhitePoint
	if w[1] != 1 || w[0] <= 0 || w[2] <= 0 {
		return lmnStage{}, fmt.Errorf("%w: white point %v", ErrDomain, w)
	}
	for _, b := range c.BlackPoint {
		if b < 0 {
			return lmnStage{}, fmt.Errorf("%w: black point %v", ErrDomain, c.BlackPoint)
		}
	}
	s := lmnStage{Common: c}
	for i := range s.floats {
		s.floats[i] = NewFloatCache(c.RangeLMN[i], c.DecodeLMN[i])
	}
	return s, nil
}

func (s *lmnStage) hasProcs() bool {
	return !allNil(s.DecodeLMN[:])
}

type abcStage struct {
	ranges [3]Range
	procs  [3]Proc
	matrix Matrix3
	cache  *VectorCache3
	floats [3]*FloatCache
}

func newABCStage(p ABC) (abcStage, error) {
	if err := fillRanges(p.RangeABC[:]); err != nil {
		return abcStage{}, fmt.Errorf("RangeABC: %w", err)
	}
	s := abcStage{ranges: p.RangeABC, procs: p.DecodeABC, matrix: p.MatrixABC.orIdentity()}
	s.cache = NewVectorCache3(s.ranges, s.procs, s.matrix)
	for i := range s.floats {
		s.floats[i] = NewFloatCache(s.ranges[i], s.procs[i])
	}
	return s, nil
}

func (s *abcStage) hasProcs() bool {
	return !allNil(s.procs[:])
}

func (s *abcStage) identity() bool {
	return !s.hasProcs() && s.matrix.IsIdentity()
}

// scale maps table outputs in [0,1] into RangeABC.
func (s *abcStage) scale(fr []Frac) Vector3 {
	var f [3]float64
	for i := range f {
		f[i] = s.ranges[i].Scale(FracToFloat(fr[i]))
	}
	return vectorFromFloats(f)
}

// tableStage is the DecodeDEF(G) plus Table front end of DEF and DEFG.
type tableStage struct {
	ranges []Range
	hij    []Range
	procs  []Proc
	table  *ColorLookupTable
	// decode maps an input component straight to table index units.
	decode []*FloatCache
}

func newTableStage(ranges, hij []Range, procs []Proc, table *ColorLookupTable) (tableStage, error) {
	n := len(ranges)
	if err := fillRanges(ranges); err != nil {
		return tableStage{}, err
	}
	if err := fillRanges(hij); err != nil {
		return tableStage{}, err
	}
	if table == nil {
		return tableStage{}, fmt.Errorf("%w: missing Table", ErrDomain)
	}
	if len(table.Dims) != n || table.M != 3 {
		return tableStage{}, fmt.Errorf("%w: Table is %d-d with %d outputs, want %d-d with 3",
			ErrDomain, len(table.Dims), table.M, n)
	}
	s := tableStage{ranges: ranges, hij: hij, procs: procs, table: table, decode: make([]*FloatCache, n)}
	for i := range s.decode {
		h, p, top := hij[i], procs[i], float64(table.Dims[i]-1)
		s.decode[i] = NewFloatCache(ranges[i], func(v float64) float64 {
			return h.Rescale(h.Clamp(p.eval(v))) * top
		})
	}
	return s, nil
}

func (s *tableStage) lookup(cc []float64) []Frac {
	coords := make([]TableCoord, len(s.decode))
	for i, c := range s.decode {
		v := c.Eval(cc[i])
		top := float64(s.table.Dims[i] - 1)
		if v < 0 {
			v = 0
		} else if v > top {
			v = top
		}
		coords[i] = floatToTableCoord(v)
	}
	return s.table.Interpolate(coords)
}

type cieBase struct {
	spaceBase
	stage lmnStage
	alt   Space
	icc   iccCell
}

func (c *cieBase) init(common Common, alt Space) error {
	stage, err := newLMNStage(common)
	if err != nil {
		return err
	}
	c.spaceBase.init()
	c.stage = stage
	if alt != nil {
		c.alt = retain(alt)
	}
	return nil
}

// Release drops a reference. The last one also releases the alternate and
// the ICC equivalent.
func (c *cieBase) Release() int32 {
	n := c.spaceBase.Release()
	if n == 0 {
		if icc := c.icc.Load(); icc != nil {
			icc.Release()
		}
		release(c.alt)
	}
	return n
}

func (c *cieBase) Polarity() device.Polarity { return device.PolarityAdditive }
func (c *cieBase) Alternate() Space          { return c.alt }
func (c *cieBase) WhitePoint() [3]float64    { return c.stage.WhitePoint }
func (c *cieBase) BlackPoint() [3]float64    { return c.stage.BlackPoint }
func (c *cieBase) lmn() *lmnStage            { return &c.stage }
func (c *cieBase) cell() *iccCell            { return &c.icc }

// CIEAParams describes a CIEBasedA space.
type CIEAParams struct {
	RangeA  Range
	DecodeA Proc
	// MatrixA scales the decoded A into L, M and N; zero means (1,1,1).
	MatrixA [3]float64
	Common
	Alternate Space
}

// CIEA is a one-component CIE space.
type CIEA struct {
	cieBase
	rangeA  Range
	decodeA Proc
	matrixA [3]float64
	cache   *VectorCache
	floats  *FloatCache
}

// NewCIEA builds the space and its decode caches.
func NewCIEA(p CIEAParams) (*CIEA, error) {
	s := &CIEA{rangeA: p.RangeA.orUnit(), decodeA: p.DecodeA, matrixA: p.MatrixA}
	if err := s.rangeA.validate(); err != nil {
		return nil, fmt.Errorf("RangeA: %w", err)
	}
	if s.matrixA == ([3]float64{}) {
		s.matrixA = [3]float64{1, 1, 1}
	}
	if err := s.cieBase.init(p.Common, p.Alternate); err != nil {
		return nil, err
	}
	s.cache = NewVectorCache1(s.rangeA, s.decodeA, s.matrixA)
	s.floats = NewFloatCache(s.rangeA, s.decodeA)
	return s, nil
}

func (s *CIEA) Name() string                         { return "CIEBasedA" }
func (s *CIEA) NumComponents() int                   { return 1 }
func (s *CIEA) Ranges() []Range                      { return []Range{s.rangeA} }
func (s *CIEA) InitColor() []float64                 { return initColor(s.Ranges()) }
func (s *CIEA) RestrictColor(cc []float64) []float64 { return restrict(s.Ranges(), cc) }
func (s *CIEA) defaultMatch() cmm.DefaultMatch       { return cmm.MatchCIEA }
func (s *CIEA) dataSpace() cmm.DataColorSpace        { return cmm.DataGray }

func (s *CIEA) skipDecode() bool {
	return s.decodeA == nil && s.matrixA == [3]float64{1, 1, 1}
}

func (s *CIEA) EnsureICCEquivalent(ctx context.Context, st *State) (*ICCSpace, error) {
	return ensureICC(ctx, s, st)
}

func (s *CIEA) Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return remapDelegated(ctx, s, cc, st, dev)
}

func (s *CIEA) Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	return concretizeDelegated(ctx, s, cc, st, dev)
}

func (s *CIEA) IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	return isLinearDelegated(ctx, s, st, dev, corners, smoothness)
}

// CIEABCParams describes a CIEBasedABC space.
type CIEABCParams struct {
	ABC
	Common
	Alternate Space
}

// CIEABC is a three-component CIE space.
type CIEABC struct {
	cieBase
	abc abcStage
}

// NewCIEABC builds the space and its decode caches.
func NewCIEABC(p CIEABCParams) (*CIEABC, error) {
	abc, err := newABCStage(p.ABC)
	if err != nil {
		return nil, err
	}
	s := &CIEABC{abc: abc}
	if err := s.cieBase.init(p.Common, p.Alternate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CIEABC) Name() string                         { return "CIEBasedABC" }
func (s *CIEABC) NumComponents() int                   { return 3 }
func (s *CIEABC) Ranges() []Range                      { return s.abc.ranges[:] }
func (s *CIEABC) InitColor() []float64                 { return initColor(s.Ranges()) }
func (s *CIEABC) RestrictColor(cc []float64) []float64 { return restrict(s.Ranges(), cc) }
func (s *CIEABC) defaultMatch() cmm.DefaultMatch       { return cmm.MatchCIEABC }
func (s *CIEABC) dataSpace() cmm.DataColorSpace        { return cmm.DataRGB }
func (s *CIEABC) skipDecode() bool                     { return s.abc.identity() }

func (s *CIEABC) EnsureICCEquivalent(ctx context.Context, st *State) (*ICCSpace, error) {
	return ensureICC(ctx, s, st)
}

func (s *CIEABC) Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return remapDelegated(ctx, s, cc, st, dev)
}

func (s *CIEABC) Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	return concretizeDelegated(ctx, s, cc, st, dev)
}

func (s *CIEABC) IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	return isLinearDelegated(ctx, s, st, dev, corners, smoothness)
}

// CIEDEFParams describes a CIEBasedDEF space. Table must be 3-d with three
// outputs.
type CIEDEFParams struct {
	RangeDEF  [3]Range
	DecodeDEF [3]Proc
	RangeHIJ  [3]Range
	Table     *ColorLookupTable
	ABC
	Common
	Alternate Space
}

// CIEDEF is a three-component CIE space with a lookup table in front of the
// ABC stage.
type CIEDEF struct {
	cieBase
	def tableStage
	abc abcStage
}

// NewCIEDEF builds the space and its decode caches.
func NewCIEDEF(p CIEDEFParams) (*CIEDEF, error) {
	def, err := newTableStage(p.RangeDEF[:], p.RangeHIJ[:], p.DecodeDEF[:], p.Table)
	if err != nil {
		return nil, fmt.Errorf("DEF table stage: %w", err)
	}
	abc, err := newABCStage(p.ABC)
	if err != nil {
		return nil, err
	}
	s := &CIEDEF{def: def, abc: abc}
	if err := s.cieBase.init(p.Common, p.Alternate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CIEDEF) Name() string                         { return "CIEBasedDEF" }
func (s *CIEDEF) NumComponents() int                   { return 3 }
func (s *CIEDEF) Ranges() []Range                      { return s.def.ranges }
func (s *CIEDEF) InitColor() []float64                 { return initColor(s.Ranges()) }
func (s *CIEDEF) RestrictColor(cc []float64) []float64 { return restrict(s.Ranges(), cc) }
func (s *CIEDEF) defaultMatch() cmm.DefaultMatch       { return cmm.MatchCIEDEF }
func (s *CIEDEF) dataSpace() cmm.DataColorSpace        { return cmm.DataRGB }
func (s *CIEDEF) skipDecode() bool                     { return s.abc.identity() }

func (s *CIEDEF) EnsureICCEquivalent(ctx context.Context, st *State) (*ICCSpace, error) {
	return ensureICC(ctx, s, st)
}

func (s *CIEDEF) Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return remapDelegated(ctx, s, cc, st, dev)
}

func (s *CIEDEF) Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	return concretizeDelegated(ctx, s, cc, st, dev)
}

func (s *CIEDEF) IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	return isLinearDelegated(ctx, s, st, dev, corners, smoothness)
}

// CIEDEFGParams describes a CIEBasedDEFG space. Table must be 4-d with
// three outputs.
type CIEDEFGParams struct {
	RangeDEFG  [4]Range
	DecodeDEFG [4]Proc
	RangeHIJK  [4]Range
	Table      *ColorLookupTable
	ABC
	Common
	Alternate Space
}

// CIEDEFG is the four-component variant of CIEDEF.
type CIEDEFG struct {
	cieBase
	defg tableStage
	abc  abcStage
}

// NewCIEDEFG builds the space and its decode caches.
func NewCIEDEFG(p CIEDEFGParams) (*CIEDEFG, error) {
	defg, err := newTableStage(p.RangeDEFG[:], p.RangeHIJK[:], p.DecodeDEFG[:], p.Table)
	if err != nil {
		return nil, fmt.Errorf("DEFG table stage: %w", err)
	}
	abc, err := newABCStage(p.ABC)
	if err != nil {
		return nil, err
	}
	s := &CIEDEFG{defg: defg, abc: abc}
	if err := s.cieBase.init(p.Common, p.Alternate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CIEDEFG) Name() string                         { return "CIEBasedDEFG" }
func (s *CIEDEFG) NumComponents() int                   { return 4 }
func (s *CIEDEFG) Ranges() []Range                      { return s.defg.ranges }
func (s *CIEDEFG) InitColor() []float64                 { return initColor(s.Ranges()) }
func (s *CIEDEFG) RestrictColor(cc []float64) []float64 { return restrict(s.Ranges(), cc) }
func (s *CIEDEFG) defaultMatch() cmm.DefaultMatch       { return cmm.MatchCIEDEFG }
func (s *CIEDEFG) dataSpace() cmm.DataColorSpace        { return cmm.DataCMYK }
func (s *CIEDEFG) skipDecode() bool                     { return s.abc.identity() }

func (s *CIEDEFG) EnsureICCEquivalent(ctx context.Context, st *State) (*ICCSpace, error) {
	return ensureICC(ctx, s, st)
}

func (s *CIEDEFG) Remap(ctx context.Context, cc []float64, st *State, dev device.Device) (device.Color, error) {
	return remapDelegated(ctx, s, cc, st, dev)
}

func (s *CIEDEFG) Concretize(ctx context.Context, cc []float64, st *State, dev device.Device) ([]Frac, error) {
	return concretizeDelegated(ctx, s, cc, st, dev)
}

func (s *CIEDEFG) IsLinear(ctx context.Context, st *State, dev device.Device, corners [][]float64, smoothness float64) (bool, error) {
	return isLinearDelegated(ctx, s, st, dev, corners, smoothness)
}
