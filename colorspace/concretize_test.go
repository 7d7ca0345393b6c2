package colorspace

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdfcolor/observability"
)

func identityCRD() *CRD {
	return &CRD{WhitePoint: D50White}
}

func TestPSConcretizeWithoutRenderingIsBlack(t *testing.T) {
	s, err := NewCIEA(CIEAParams{RangeA: Range{Min: 0, Max: 1}, Common: Common{WhitePoint: D50White}})
	if err != nil {
		t.Fatalf("NewCIEA failed: %v", err)
	}
	st := newTestState(Config{})

	fr, xyz, status, err := PSConcretize(context.Background(), s, []float64{0.5}, st)
	if err != nil {
		t.Fatalf("PSConcretize failed: %v", err)
	}
	if status != StatusNoop {
		t.Errorf("status = %v, want StatusNoop", status)
	}
	if len(fr) != 3 || fr[0] != 0 || fr[1] != 0 || fr[2] != 0 {
		t.Errorf("fracs = %v, want [0 0 0]", fr)
	}
	if xyz != ([3]float64{}) {
		t.Errorf("xyz = %v, want zero", xyz)
	}
	if st.JointCache().Status != JointNotBuilt {
		t.Errorf("joint cache status = %v", st.JointCache().Status)
	}
}

func TestPSConcretizeTooFewComponents(t *testing.T) {
	st := newTestState(Config{})
	st.SetCIEToXYZ(true)
	_, _, _, err := PSConcretize(context.Background(), unitXYZSpace(t), []float64{0.1, 0.2}, st)
	if !errors.Is(err, ErrDomain) {
		t.Fatalf("err = %v, want ErrDomain", err)
	}
}

func TestPSConcretizeToXYZ(t *testing.T) {
	sq := func(v float64) float64 { return v * v }
	abc, err := NewCIEABC(CIEABCParams{
		ABC:    ABC{DecodeABC: [3]Proc{sq, nil, nil}},
		Common: Common{WhitePoint: D50White},
	})
	if err != nil {
		t.Fatalf("NewCIEABC failed: %v", err)
	}
	a, err := NewCIEA(CIEAParams{
		MatrixA: D50White,
		Common:  Common{WhitePoint: D50White},
	})
	if err != nil {
		t.Fatalf("NewCIEA failed: %v", err)
	}

	tests := []struct {
		name string
		cs   CIESpace
		in   []float64
		want [3]float64
		tol  float64
	}{
		{"ABC identity decode on B and C", abc, []float64{0.5, 0.25, 1}, [3]float64{0.25, 0.25, 1}, 2e-3},
		{"A scaled by white", a, []float64{0.5}, [3]float64{D50White[0] / 2, 0.5, D50White[2] / 2}, 3e-3},
		{"A black", a, []float64{0}, [3]float64{}, 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestState(Config{})
			st.SetCIEToXYZ(true)
			fr, xyz, status, err := PSConcretize(context.Background(), tt.cs, tt.in, st)
			if err != nil {
				t.Fatalf("PSConcretize failed: %v", err)
			}
			if status != StatusDone {
				t.Fatalf("status = %v", status)
			}
			for i := range xyz {
				if !near(xyz[i], tt.want[i], tt.tol) {
					t.Errorf("xyz = %v, want %v", xyz, tt.want)
					break
				}
			}
			for i := range fr {
				if !fracNear(fr[i], tt.want[i], 100) {
					t.Errorf("fracs = %v do not follow xyz %v", fr, tt.want)
					break
				}
			}
		})
	}
}

func TestPSConcretizeTableSpaces(t *testing.T) {
	def, err := NewCIEDEF(CIEDEFParams{Table: identityTable(t, 3), Common: Common{WhitePoint: D50White}})
	if err != nil {
		t.Fatalf("NewCIEDEF failed: %v", err)
	}
	defg, err := NewCIEDEFG(CIEDEFGParams{Table: identityTable(t, 4), Common: Common{WhitePoint: D50White}})
	if err != nil {
		t.Fatalf("NewCIEDEFG failed: %v", err)
	}

	tests := []struct {
		name string
		cs   CIESpace
		in   []float64
		want [3]float64
	}{
		{"DEF center", def, []float64{0.5, 0.5, 0.5}, [3]float64{0.5, 0.5, 0.5}},
		{"DEF corner", def, []float64{1, 0, 1}, [3]float64{1, 0, 1}},
		{"DEFG ignores last", defg, []float64{0.25, 0.75, 0.5, 1}, [3]float64{0.25, 0.75, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestState(Config{})
			st.SetCIEToXYZ(true)
			_, xyz, _, err := PSConcretize(context.Background(), tt.cs, tt.in, st)
			if err != nil {
				t.Fatalf("PSConcretize failed: %v", err)
			}
			for i := range xyz {
				if !near(xyz[i], tt.want[i], 3e-3) {
					t.Fatalf("xyz = %v, want %v", xyz, tt.want)
				}
			}
		})
	}
}

func TestNewCIEDEFRejectsWrongTable(t *testing.T) {
	_, err := NewCIEDEF(CIEDEFParams{Table: identityTable(t, 4), Common: Common{WhitePoint: D50White}})
	if !errors.Is(err, ErrDomain) {
		t.Fatalf("err = %v, want ErrDomain", err)
	}
}

func TestNewCIESpaceValidation(t *testing.T) {
	tests := []struct {
		name   string
		params CIEABCParams
	}{
		{"zero white", CIEABCParams{}},
		{"white Y not one", CIEABCParams{Common: Common{WhitePoint: [3]float64{0.95, 0.9, 1}}}},
		{"negative black", CIEABCParams{Common: Common{WhitePoint: D50White, BlackPoint: [3]float64{0, -0.1, 0}}}},
		{"inverted range", CIEABCParams{
			ABC:    ABC{RangeABC: [3]Range{{Min: 1, Max: 0}, UnitRange, UnitRange}},
			Common: Common{WhitePoint: D50White},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCIEABC(tt.params); !errors.Is(err, ErrDomain) {
				t.Errorf("err = %v, want ErrDomain", err)
			}
		})
	}
}

func TestConcretizeCIEIdentityCRD(t *testing.T) {
	st := newTestState(Config{})
	if err := st.SetCRD(identityCRD()); err != nil {
		t.Fatalf("SetCRD failed: %v", err)
	}
	in := []float64{0.2, 0.4, 0.6}
	fr, status, err := ConcretizeCIE(context.Background(), unitXYZSpace(t), in, st)
	if err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	if status != StatusDone {
		t.Fatalf("status = %v", status)
	}
	for i, v := range in {
		if !fracNear(fr[i], v, 32) {
			t.Errorf("component %d = %d, want about %d", i, fr[i], FloatToFrac(v))
		}
	}
	jc := st.JointCache()
	if !jc.SkipDecodeABC || !jc.SkipDecodeLMN || !jc.SkipPQR || !jc.SkipEncodeLMN {
		t.Errorf("identity stages not skipped: %+v", jc)
	}
}

func TestConcretizeCIEVonKries(t *testing.T) {
	d65 := [3]float64{0.9505, 1, 1.089}
	s, err := NewCIEABC(CIEABCParams{Common: Common{WhitePoint: d65}})
	if err != nil {
		t.Fatalf("NewCIEABC failed: %v", err)
	}
	st := newTestState(Config{})
	if err := st.SetCRD(&CRD{WhitePoint: D50White, TransformPQR: VonKries}); err != nil {
		t.Fatalf("SetCRD failed: %v", err)
	}
	fr, _, err := ConcretizeCIE(context.Background(), s, []float64{0.5, 0.5, 0.5}, st)
	if err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	want := [3]float64{0.5 * D50White[0] / d65[0], 0.5, 0.5 * D50White[2] / d65[2]}
	for i := range want {
		if !fracNear(fr[i], want[i], 40) {
			t.Errorf("component %d = %d, want about %d", i, fr[i], FloatToFrac(want[i]))
		}
	}
	if st.JointCache().SkipPQR {
		t.Error("TransformPQR stage was skipped")
	}
}

func TestConcretizeCIERenderTable(t *testing.T) {
	invert := func(v float64) float64 { return 1 - v }
	crd := &CRD{
		WhitePoint: D50White,
		RenderTable: &RenderTable{
			Table: identityTable(t, 3),
			T:     []Proc{invert, invert, invert},
		},
	}
	if crd.NumOutputs() != 3 {
		t.Fatalf("NumOutputs = %d", crd.NumOutputs())
	}
	st := newTestState(Config{})
	if err := st.SetCRD(crd); err != nil {
		t.Fatalf("SetCRD failed: %v", err)
	}
	fr, _, err := ConcretizeCIE(context.Background(), unitXYZSpace(t), []float64{0.25, 0.5, 0.75}, st)
	if err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	for i, want := range []float64{0.75, 0.5, 0.25} {
		if !fracNear(fr[i], want, 64) {
			t.Errorf("component %d = %d, want about %d", i, fr[i], FloatToFrac(want))
		}
	}
}

func TestSetCRDRejectsBadDictionary(t *testing.T) {
	tests := []struct {
		name string
		crd  *CRD
	}{
		{"zero white", &CRD{}},
		{"singular PQR", &CRD{WhitePoint: D50White, MatrixPQR: Matrix3{CU: [3]float64{1, 1, 1}}}},
		{"2-d render table", &CRD{WhitePoint: D50White, RenderTable: &RenderTable{
			Table: &ColorLookupTable{Dims: []int{2, 2}, M: 3, Data: make([]byte, 12)},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestState(Config{})
			if err := st.SetCRD(tt.crd); !errors.Is(err, ErrDomain) {
				t.Errorf("err = %v, want ErrDomain", err)
			}
		})
	}
}

func TestJointCacheFollowsColorSpace(t *testing.T) {
	tracer := &countingTracer{}
	st := newTestState(Config{Tracer: tracer})
	if err := st.SetCRD(identityCRD()); err != nil {
		t.Fatalf("SetCRD failed: %v", err)
	}
	if st.JointCache().Status != JointBuilt {
		t.Fatalf("status after SetCRD = %v", st.JointCache().Status)
	}
	a, b := unitXYZSpace(t), unitXYZSpace(t)
	if a.ID() == b.ID() {
		t.Fatal("spaces share an ID")
	}

	cc := []float64{0.1, 0.2, 0.3}
	if _, _, err := ConcretizeCIE(context.Background(), a, cc, st); err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	first := st.JointCache()
	if first.Status != JointCompleted || first.ColorSpaceID != a.ID() {
		t.Fatalf("joint cache = %v for %d, want completed for %d", first.Status, first.ColorSpaceID, a.ID())
	}
	if _, _, err := ConcretizeCIE(context.Background(), a, cc, st); err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	if st.JointCache() != first {
		t.Error("joint cache rebuilt for the same space")
	}
	if n := tracer.count(observability.SpanJointCache); n != 1 {
		t.Errorf("joint cache completed %d times, want 1", n)
	}

	if _, _, err := ConcretizeCIE(context.Background(), b, cc, st); err != nil {
		t.Fatalf("ConcretizeCIE failed: %v", err)
	}
	if jc := st.JointCache(); jc == first || jc.ColorSpaceID != b.ID() {
		t.Errorf("joint cache not rebound to the second space")
	}
	if n := tracer.count(observability.SpanJointCache); n != 2 {
		t.Errorf("joint cache completed %d times, want 2", n)
	}
}

func TestCheckRenderingSpanFollowsCaller(t *testing.T) {
	tracer := &countingTracer{}
	st := newTestState(Config{Tracer: tracer})
	st.SetCIEToXYZ(true)
	ctx := context.WithValue(context.Background(), requestKey{}, "req-7")

	if _, _, _, err := PSConcretize(ctx, unitXYZSpace(t), []float64{0.1, 0.2, 0.3}, st); err != nil {
		t.Fatalf("PSConcretize failed: %v", err)
	}
	if got := tracer.request(observability.SpanJointCache); got != "req-7" {
		t.Errorf("joint cache span started from request %v, want req-7", got)
	}
}
